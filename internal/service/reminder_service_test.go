package service

import (
	"context"
	"testing"
	"time"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) reminders(leadDays int) ReminderService {
	r := f.repos
	return NewReminderService(r.Tx, r.Reminders, r.Invoices, r.Students, r.Notifications, f.events, leadDays, f.logger)
}

func TestRemindDueInvoices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

	dueSoon := now.AddDate(0, 0, 2)
	dueLater := now.AddDate(0, 0, 30)
	soonStudent, soonInv := f.invoice(t, 250, &dueSoon)
	_, _ = f.invoice(t, 900, &dueLater)
	_, _ = f.invoice(t, 400, nil)

	svc := f.reminders(3)

	created, err := svc.RemindDueInvoices(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	notes := f.notifications(t, soonStudent.ID)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "invoice #"+soonInv.ID)
	assert.Contains(t, notes[0].Message, "is due on 2026-10-17")

	reminders, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, soonInv.ID, reminders[0].InvoiceID)

	// a second run on the same day is a no-op
	created, err = svc.RemindDueInvoices(ctx, now.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Len(t, f.notifications(t, soonStudent.ID), 1)

	created, err = svc.RemindDueInvoices(ctx, now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestRemindDueInvoices_SkipsPaidInvoices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	due := now.AddDate(0, 0, 1)
	_, inv := f.invoice(t, 100, &due)

	_, err := f.billing(SettleAnyPayment).RecordPayment(ctx, &models.RecordPaymentRequest{InvoiceID: inv.ID, Amount: 100, Method: "cash"})
	require.NoError(t, err)

	created, err := f.reminders(3).RemindDueInvoices(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestReminderCreateAndPush(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "Aisha")
	svc := f.reminders(0)

	_, err := svc.Create(ctx, &models.CreateReminderRequest{StudentID: student.ID})
	assert.Equal(t, "Missing data", asError[*ValidationError](t, err).Message)

	_, err = svc.Create(ctx, &models.CreateReminderRequest{StudentID: "missing", Note: "x"})
	assert.True(t, IsNotFound(err))

	reminder, err := svc.Create(ctx, &models.CreateReminderRequest{StudentID: student.ID, Note: "Bring passport", ReminderDate: "2026-11-01"})
	require.NoError(t, err)
	assert.Equal(t, "2026-11-01", reminder.ReminderDate.Format(dateLayout))

	n, err := svc.Push(ctx, &models.PushReminderRequest{StudentID: student.ID, Note: "Bring passport"})
	require.NoError(t, err)
	assert.Equal(t, "Bring passport", n.Message)
	assert.Len(t, f.events.byKey(models.EventNotificationCreated), 1)

	require.NoError(t, svc.Delete(ctx, reminder.ID))
	assert.True(t, IsNotFound(svc.Delete(ctx, reminder.ID)))
}

func TestNotificationService_StudentScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.student(t, "Aisha")
	other := f.student(t, "Bala")
	r := f.repos
	svc := NewNotificationService(r.Notifications, r.Students, f.events, f.logger)

	first, err := svc.Create(ctx, &models.CreateNotificationRequest{StudentID: owner.ID, Message: "Welcome"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &models.CreateNotificationRequest{StudentID: owner.ID, Message: "Offer letter ready"})
	require.NoError(t, err)

	assert.True(t, IsNotFound(svc.MarkMineRead(ctx, other.UserID, first.ID)))
	require.NoError(t, svc.MarkMineRead(ctx, owner.UserID, first.ID))

	counts, err := svc.UnreadCounts(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 1, counts[0].UnreadCount)

	marked, err := svc.MarkAllMineRead(ctx, owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	mine, err := svc.ListMine(ctx, "no-profile")
	require.NoError(t, err)
	assert.Empty(t, mine)
}
