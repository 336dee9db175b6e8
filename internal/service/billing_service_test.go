package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) invoice(t *testing.T, amount float64, due *time.Time) (*models.Student, *models.Invoice) {
	t.Helper()
	ctx := context.Background()
	student := f.student(t, "Payer")
	uni := f.university(t, "Invoice University")
	app, err := f.applications().Apply(ctx, student.ID, uni.ID)
	require.NoError(t, err)

	req := &models.CreateInvoiceRequest{ApplicationID: app.ID, Amount: amount}
	if due != nil {
		req.DueDate = due.Format(dateLayout)
	}
	inv, err := f.billing(SettleAnyPayment).CreateInvoice(ctx, req)
	require.NoError(t, err)
	return student, inv
}

func TestParseSettlementPolicy(t *testing.T) {
	p, err := ParseSettlementPolicy("")
	require.NoError(t, err)
	assert.Equal(t, SettleAnyPayment, p)

	p, err = ParseSettlementPolicy("cumulative")
	require.NoError(t, err)
	assert.Equal(t, SettleCumulative, p)

	_, err = ParseSettlementPolicy("half")
	assert.Error(t, err)
}

func TestCreateInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, inv := f.invoice(t, 1500, nil)

	assert.Equal(t, models.InvoiceUnpaid, inv.Status)
	assert.Equal(t, 1500.0, inv.Amount)

	_, err := f.billing(SettleAnyPayment).CreateInvoice(ctx, &models.CreateInvoiceRequest{ApplicationID: inv.ApplicationID, Amount: 10})
	conflict := asError[*ConflictError](t, err)
	assert.Equal(t, inv.ID, conflict.ExistingID)

	_, err = f.billing(SettleAnyPayment).CreateInvoice(ctx, &models.CreateInvoiceRequest{ApplicationID: "missing", Amount: 10})
	assert.True(t, IsNotFound(err))

	_, err = f.billing(SettleAnyPayment).CreateInvoice(ctx, &models.CreateInvoiceRequest{ApplicationID: inv.ApplicationID, Amount: 10, DueDate: "15/10/2026"})
	asError[*ValidationError](t, err)
}

func TestRecordPayment_UnknownInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.billing(SettleAnyPayment).RecordPayment(ctx, &models.RecordPaymentRequest{
		InvoiceID: uuid.New().String(),
		Amount:    100,
		Method:    "cash",
	})
	assert.Equal(t, "Invoice", asError[*NotFoundError](t, err).Resource)

	payments, err := f.repos.Payments.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestRecordPayment_Validation(t *testing.T) {
	f := newFixture(t)
	_, inv := f.invoice(t, 100, nil)
	svc := f.billing(SettleAnyPayment)

	cases := map[string]*models.RecordPaymentRequest{
		"no invoice":  {Amount: 10, Method: "cash"},
		"zero amount": {InvoiceID: inv.ID, Method: "cash"},
		"no method":   {InvoiceID: inv.ID, Amount: 10, Method: "  "},
		"bad date":    {InvoiceID: inv.ID, Amount: 10, Method: "cash", PaymentDate: "yesterday"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.RecordPayment(context.Background(), req)
			asError[*ValidationError](t, err)
		})
	}
}

func TestRecordPayment_AnyPaymentSettlesInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, inv := f.invoice(t, 5000, nil)

	res, err := f.billing(SettleAnyPayment).RecordPayment(ctx, &models.RecordPaymentRequest{
		InvoiceID:   inv.ID,
		Amount:      100,
		Method:      "bank transfer",
		PaymentDate: "2026-10-01",
	})
	require.NoError(t, err)

	assert.Equal(t, models.InvoicePaid, res.InvoiceStatus)
	assert.Equal(t, 100.0, res.TotalPaid)
	assert.Equal(t, "2026-10-01", res.Payment.PaymentDate.Format(dateLayout))

	stored, err := f.repos.Invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, stored.Status)
}

func TestRecordPayment_CumulativeSettlesWhenCovered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, inv := f.invoice(t, 1000, nil)
	svc := f.billing(SettleCumulative)

	res, err := svc.RecordPayment(ctx, &models.RecordPaymentRequest{InvoiceID: inv.ID, Amount: 400, Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceUnpaid, res.InvoiceStatus)
	assert.Equal(t, 400.0, res.TotalPaid)

	res, err = svc.RecordPayment(ctx, &models.RecordPaymentRequest{InvoiceID: inv.ID, Amount: 600, Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, res.InvoiceStatus)
	assert.Equal(t, 1000.0, res.TotalPaid)
}

func TestRecordPayment_CumulativeComparesInCents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, inv := f.invoice(t, 0.8, nil)
	svc := f.billing(SettleCumulative)

	res, err := svc.RecordPayment(ctx, &models.RecordPaymentRequest{InvoiceID: inv.ID, Amount: 0.7, Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceUnpaid, res.InvoiceStatus)

	res, err = svc.RecordPayment(ctx, &models.RecordPaymentRequest{InvoiceID: inv.ID, Amount: 0.1, Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, res.InvoiceStatus)
	assert.InDelta(t, 0.8, res.TotalPaid, 0.001)
}

func TestRecordPayment_RollsBackWhenSettlementFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, inv := f.invoice(t, 100, nil)

	f.repos.Store.FailOn("invoices.UpdateStatus", errors.New("connection reset"))
	_, err := f.billing(SettleAnyPayment).RecordPayment(ctx, &models.RecordPaymentRequest{InvoiceID: inv.ID, Amount: 100, Method: "cash"})
	require.Error(t, err)

	total, err := f.repos.Payments.SumByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Zero(t, total, "payment is not kept without its settlement")
}

func TestRecordPayment_ClearsInvoiceReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student, inv := f.invoice(t, 100, nil)
	other := f.student(t, "Other")

	now := time.Now()
	reminders := []*models.Reminder{
		{ID: uuid.New().String(), StudentID: student.ID, InvoiceID: inv.ID, Note: "linked", ReminderDate: now},
		{ID: uuid.New().String(), StudentID: student.ID, Note: "Please settle Invoice #" + inv.ID, ReminderDate: now},
		{ID: uuid.New().String(), StudentID: other.ID, Note: "unrelated", ReminderDate: now},
	}
	for _, r := range reminders {
		require.NoError(t, f.repos.Reminders.Create(ctx, r))
	}

	_, err := f.billing(SettleAnyPayment).RecordPayment(ctx, &models.RecordPaymentRequest{InvoiceID: inv.ID, Amount: 100, Method: "cash"})
	require.NoError(t, err)

	left, err := f.repos.Reminders.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "unrelated", left[0].Note)
}

func TestMyInvoicesAndPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student, inv := f.invoice(t, 300, nil)
	svc := f.billing(SettleAnyPayment)

	_, err := svc.RecordPayment(ctx, &models.RecordPaymentRequest{InvoiceID: inv.ID, Amount: 300, Method: "card"})
	require.NoError(t, err)

	invoices, err := svc.MyInvoices(ctx, student.UserID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, 300.0, invoices[0].PaidAmount)
	assert.Equal(t, "Payer", invoices[0].StudentName)

	payments, err := svc.MyPayments(ctx, student.UserID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "card", payments[0].Method)

	_, err = svc.MyInvoices(ctx, "unknown")
	assert.True(t, IsNotFound(err))
}
