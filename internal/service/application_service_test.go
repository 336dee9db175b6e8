package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_CreatesAppliedApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "Aisha")
	uni := f.university(t, "Universiti Malaya")

	app, err := f.applications().Apply(ctx, student.ID, uni.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusApplied, app.Status)
	assert.Equal(t, student.ID, app.StudentID)
	assert.Equal(t, uni.ID, app.UniversityID)
	assert.NotEmpty(t, app.ID)

	stored, err := f.repos.Applications.GetByID(ctx, app.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.StatusApplied, stored.Status)
}

func TestApply_UnknownStudentOrUniversity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "Aisha")
	uni := f.university(t, "Monash")
	svc := f.applications()

	_, err := svc.Apply(ctx, "missing", uni.ID)
	assert.Equal(t, "Student", asError[*NotFoundError](t, err).Resource)

	_, err = svc.Apply(ctx, student.ID, "missing")
	assert.Equal(t, "University", asError[*NotFoundError](t, err).Resource)

	_, err = svc.Apply(ctx, "", uni.ID)
	asError[*ValidationError](t, err)
}

func TestApply_DuplicateActiveApplication(t *testing.T) {
	for _, status := range []models.ApplicationStatus{models.StatusApplied, models.StatusApproved} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			student := f.student(t, "Aisha")
			uni := f.university(t, "Taylor's")
			svc := f.applications()

			first, err := svc.Apply(ctx, student.ID, uni.ID)
			require.NoError(t, err)
			if status != models.StatusApplied {
				_, err = svc.SetStatus(ctx, first.ID, status, "", "admin")
				require.NoError(t, err)
			}

			_, err = svc.Apply(ctx, student.ID, uni.ID)
			dup := asError[*DuplicateApplicationError](t, err)
			assert.Equal(t, status, dup.Status)
			assert.Contains(t, dup.Error(), string(status))

			apps, err := svc.ListByStudent(ctx, student.ID)
			require.NoError(t, err)
			require.Len(t, apps, 1)
			assert.Equal(t, first.ID, apps[0].ID)
			assert.Equal(t, status, apps[0].Status)
		})
	}
}

func TestApply_ReplacesRejectedApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "Aisha")
	uni := f.university(t, "Sunway")
	svc := f.applications()

	rejected, err := svc.Apply(ctx, student.ID, uni.ID)
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, rejected.ID, models.StatusRejected, "Incomplete", "admin")
	require.NoError(t, err)

	fresh, err := svc.Apply(ctx, student.ID, uni.ID)
	require.NoError(t, err)

	assert.NotEqual(t, rejected.ID, fresh.ID)
	assert.Equal(t, models.StatusApplied, fresh.Status)

	old, err := f.repos.Applications.GetByID(ctx, rejected.ID)
	require.NoError(t, err)
	assert.Nil(t, old)

	history, err := f.repos.History.ListByApplication(ctx, rejected.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "history of the replaced application is cascaded")
}

func TestApply_AdminAndStudentPathsShareThePolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "Aisha")
	uni := f.university(t, "UCSI")
	svc := f.applications()

	_, err := svc.Apply(ctx, student.ID, uni.ID)
	require.NoError(t, err)

	_, err = svc.ApplyAsStudent(ctx, student.UserID, uni.ID)
	asError[*DuplicateApplicationError](t, err)

	_, err = svc.ApplyAsStudent(ctx, "no-such-user", uni.ID)
	assert.Equal(t, "Student profile", asError[*NotFoundError](t, err).Resource)
}

func TestApply_ConcurrentRequestsKeepOneActiveApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "Aisha")
	uni := f.university(t, "APU")
	svc := f.applications()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Apply(ctx, student.ID, uni.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var dup *DuplicateApplicationError
		assert.True(t, errors.As(err, &dup), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	apps, err := svc.ListByStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestSetStatus_InvalidStatusDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "Aisha")
	uni := f.university(t, "INTI")
	svc := f.applications()

	app, err := svc.Apply(ctx, student.ID, uni.ID)
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, app.ID, models.ApplicationStatus("Pending"), "x", "admin")
	asError[*ValidationError](t, err)

	stored, err := f.repos.Applications.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApplied, stored.Status)
	assert.Empty(t, stored.CounselorRemark)
}

func TestSetStatus_UnknownApplication(t *testing.T) {
	f := newFixture(t)

	_, err := f.applications().SetStatus(context.Background(), "missing", models.StatusApproved, "", "admin")
	assert.True(t, IsNotFound(err))
}

func TestSetStatus_RejectedWritesHistoryAndNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@ilham.test", models.RoleAdmin)
	student := f.student(t, "Aisha")
	uni := f.university(t, "Universiti Putra Malaysia")
	svc := f.applications()

	app, err := svc.Apply(ctx, student.ID, uni.ID)
	require.NoError(t, err)

	updated, err := svc.SetStatus(ctx, app.ID, models.StatusRejected, "GPA too low", admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, updated.Status)
	assert.Equal(t, "GPA too low", updated.CounselorRemark)

	history, err := svc.History(ctx, app.ID, "")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusApplied, history[0].OldStatus)
	assert.Equal(t, models.StatusRejected, history[0].NewStatus)
	assert.Equal(t, "GPA too low", history[0].Remark)
	assert.Equal(t, admin.ID, history[0].ChangedBy)
	assert.Equal(t, admin.Email, history[0].ChangedByEmail)

	notes := f.notifications(t, student.ID)
	require.Len(t, notes, 1)
	assert.Equal(t,
		"Your application to Universiti Putra Malaysia has been rejected. Remark: GPA too low",
		notes[0].Message)

	events := f.events.byKey(models.EventNotificationCreated)
	require.Len(t, events, 1)
	var event models.NotificationCreatedEvent
	require.NoError(t, json.Unmarshal(events[0].Body, &event))
	assert.Equal(t, notes[0].ID, event.NotificationID)
	assert.Equal(t, student.Email, event.Email)
}

func TestSetStatus_SameStatusWritesNoHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "Aisha")
	uni := f.university(t, "Monash")
	svc := f.applications()

	app, err := svc.Apply(ctx, student.ID, uni.ID)
	require.NoError(t, err)

	updated, err := svc.SetStatus(ctx, app.ID, models.StatusApplied, "Still reviewing", "admin")
	require.NoError(t, err)
	assert.Equal(t, "Still reviewing", updated.CounselorRemark)

	history, err := f.repos.History.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, f.notifications(t, student.ID))
}

func TestSetStatus_ApprovedSendsNoNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "Aisha")
	uni := f.university(t, "Monash")
	svc := f.applications()

	app, err := svc.Apply(ctx, student.ID, uni.ID)
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, app.ID, models.StatusApproved, "", "admin")
	require.NoError(t, err)

	history, err := f.repos.History.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusApproved, history[0].NewStatus)
	assert.Empty(t, f.notifications(t, student.ID))
	assert.Empty(t, f.events.byKey(models.EventNotificationCreated))
}

func TestSetStatus_RollsBackWhenHistoryFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "Aisha")
	uni := f.university(t, "Monash")
	svc := f.applications()

	app, err := svc.Apply(ctx, student.ID, uni.ID)
	require.NoError(t, err)

	f.repos.Store.FailOn("history.Create", errors.New("disk full"))
	_, err = svc.SetStatus(ctx, app.ID, models.StatusRejected, "late", "admin")
	require.Error(t, err)

	stored, err := f.repos.Applications.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApplied, stored.Status)
	assert.Empty(t, f.notifications(t, student.ID))
}

func TestSetStatus_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "Aisha")
	uni := f.university(t, "Monash")
	svc := f.applications()

	app, err := svc.Apply(ctx, student.ID, uni.ID)
	require.NoError(t, err)

	f.events.err = errors.New("broker down")
	_, err = svc.SetStatus(ctx, app.ID, models.StatusRejected, "", "admin")
	require.NoError(t, err)

	notes := f.notifications(t, student.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, "Your application to Monash has been rejected.", notes[0].Message)
}

func TestApplicationLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@ilham.test", models.RoleAdmin)
	student := f.student(t, "Siti")
	uni := f.university(t, "University of Nottingham Malaysia")
	svc := f.applications()

	first, err := svc.ApplyAsStudent(ctx, student.UserID, uni.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApplied, first.Status)

	_, err = svc.SetStatus(ctx, first.ID, models.StatusRejected, "GPA too low", admin.ID)
	require.NoError(t, err)
	require.Len(t, f.notifications(t, student.ID), 1)

	second, err := svc.ApplyAsStudent(ctx, student.UserID, uni.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, models.StatusApplied, second.Status)

	_, err = svc.SetStatus(ctx, second.ID, models.StatusApproved, "", admin.ID)
	require.NoError(t, err)

	history, err := svc.History(ctx, second.ID, student.UserID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusApplied, history[0].OldStatus)
	assert.Equal(t, models.StatusApproved, history[0].NewStatus)

	assert.Len(t, f.notifications(t, student.ID), 1, "approval does not notify")
}

func TestHistory_StudentCannotReadOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.student(t, "Aisha")
	other := f.student(t, "Bala")
	uni := f.university(t, "Monash")
	svc := f.applications()

	app, err := svc.Apply(ctx, owner.ID, uni.ID)
	require.NoError(t, err)

	_, err = svc.History(ctx, app.ID, other.UserID)
	asError[*ForbiddenError](t, err)

	_, err = svc.History(ctx, app.ID, owner.UserID)
	require.NoError(t, err)
}

func TestUpdate_ChangingUniversityKeepsPairUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "Aisha")
	uniA := f.university(t, "A")
	uniB := f.university(t, "B")
	svc := f.applications()

	appA, err := svc.Apply(ctx, student.ID, uniA.ID)
	require.NoError(t, err)
	_, err = svc.Apply(ctx, student.ID, uniB.ID)
	require.NoError(t, err)

	target := uniB.ID
	_, err = svc.Update(ctx, appA.ID, &models.UpdateApplicationRequest{UniversityID: &target}, "admin")
	asError[*DuplicateApplicationError](t, err)

	rejected := string(models.StatusRejected)
	updated, err := svc.Update(ctx, appA.ID, &models.UpdateApplicationRequest{UniversityID: &target, Status: &rejected}, "admin")
	require.NoError(t, err)
	assert.Equal(t, uniB.ID, updated.UniversityID)
	assert.Equal(t, models.StatusRejected, updated.Status)

	_, err = svc.Update(ctx, appA.ID, &models.UpdateApplicationRequest{}, "admin")
	asError[*ValidationError](t, err)
}

func TestUpdate_FailedMoveLeavesRejectionUncommitted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "Aisha")
	uni := f.university(t, "Monash")
	svc := f.applications()

	app, err := svc.Apply(ctx, student.ID, uni.ID)
	require.NoError(t, err)

	missing := "no-such-university"
	rejected := string(models.StatusRejected)
	remark := "Wrong intake"
	_, err = svc.Update(ctx, app.ID, &models.UpdateApplicationRequest{
		UniversityID: &missing,
		Status:       &rejected,
		Remark:       &remark,
	}, "admin")
	assert.Equal(t, "University", asError[*NotFoundError](t, err).Resource)

	stored, err := f.repos.Applications.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApplied, stored.Status)
	assert.Equal(t, uni.ID, stored.UniversityID)
	assert.Empty(t, stored.CounselorRemark)

	history, err := f.repos.History.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, f.notifications(t, student.ID))
	assert.Empty(t, f.events.byKey(models.EventNotificationCreated))
}

func TestUpdate_FailedStatusKeepsUniversity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "Aisha")
	uniA := f.university(t, "A")
	uniB := f.university(t, "B")
	svc := f.applications()

	appA, err := svc.Apply(ctx, student.ID, uniA.ID)
	require.NoError(t, err)
	_, err = svc.Apply(ctx, student.ID, uniB.ID)
	require.NoError(t, err)

	target := uniB.ID
	approved := string(models.StatusApproved)
	_, err = svc.Update(ctx, appA.ID, &models.UpdateApplicationRequest{UniversityID: &target, Status: &approved}, "admin")
	asError[*DuplicateApplicationError](t, err)

	stored, err := f.repos.Applications.GetByID(ctx, appA.ID)
	require.NoError(t, err)
	assert.Equal(t, uniA.ID, stored.UniversityID)
	assert.Equal(t, models.StatusApplied, stored.Status)

	history, err := f.repos.History.ListByApplication(ctx, appA.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUpdate_StatusAndUniversityTogether(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "Aisha")
	uniA := f.university(t, "A")
	uniB := f.university(t, "B")
	svc := f.applications()

	app, err := svc.Apply(ctx, student.ID, uniA.ID)
	require.NoError(t, err)

	target := uniB.ID
	approved := string(models.StatusApproved)
	remark := "Moved to B"
	updated, err := svc.Update(ctx, app.ID, &models.UpdateApplicationRequest{
		UniversityID: &target,
		Status:       &approved,
		Remark:       &remark,
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, uniB.ID, updated.UniversityID)
	assert.Equal(t, models.StatusApproved, updated.Status)
	assert.Equal(t, remark, updated.CounselorRemark)

	history, err := f.repos.History.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusApproved, history[0].NewStatus)
	assert.Empty(t, f.events.byKey(models.EventNotificationCreated))

	rejected := string(models.StatusRejected)
	back := uniA.ID
	updated, err = svc.Update(ctx, app.ID, &models.UpdateApplicationRequest{UniversityID: &back, Status: &rejected}, "admin")
	require.NoError(t, err)
	assert.Equal(t, uniA.ID, updated.UniversityID)
	assert.Equal(t, models.StatusRejected, updated.Status)
	assert.Equal(t, remark, updated.CounselorRemark)

	require.Len(t, f.notifications(t, student.ID), 1)
	assert.Len(t, f.events.byKey(models.EventNotificationCreated), 1)
}
