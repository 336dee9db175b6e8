package service

import (
	"context"
	"testing"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounselorAssign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.repos
	svc := NewCounselorService(r.Tx, r.Counselors, r.Users, r.Students, f.logger)

	student := f.student(t, "Aisha")
	first := f.user(t, "first@ilham.test", models.RoleCounselor)
	second := f.user(t, "second@ilham.test", models.RoleCounselor)
	finance := f.user(t, "finance@ilham.test", models.RoleFinance)

	_, err := svc.Assign(ctx, &models.AssignCounselorRequest{StudentID: student.ID, CounselorID: finance.ID})
	assert.Equal(t, "Invalid counselor ID or user is not a counselor", asError[*ValidationError](t, err).Message)

	_, err = svc.Assign(ctx, &models.AssignCounselorRequest{StudentID: "missing", CounselorID: first.ID})
	assert.True(t, IsNotFound(err))

	a1, err := svc.Assign(ctx, &models.AssignCounselorRequest{StudentID: student.ID, CounselorID: first.ID})
	require.NoError(t, err)
	assert.True(t, a1.IsActive)

	a2, err := svc.Assign(ctx, &models.AssignCounselorRequest{StudentID: student.ID, CounselorID: second.ID})
	require.NoError(t, err)

	current, err := svc.CounselorOf(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, a2.ID, current.ID)
	assert.Equal(t, "second@ilham.test", current.CounselorEmail)

	active, err := svc.StudentsOf(ctx, first.ID, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := svc.StudentsOf(ctx, first.ID, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)

	load, err := svc.ListCounselors(ctx)
	require.NoError(t, err)
	require.Len(t, load, 2)
	assert.Equal(t, 0, load[0].ActiveStudents)
	assert.Equal(t, 1, load[1].ActiveStudents)

	inactive := false
	assignments, err := svc.ListAssignments(ctx, &inactive)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, a1.ID, assignments[0].ID)

	require.NoError(t, svc.SetActive(ctx, a2.ID, false))
	_, err = svc.CounselorOf(ctx, student.ID)
	assert.True(t, IsNotFound(err))

	require.NoError(t, svc.DeleteAssignment(ctx, a1.ID))
	assert.True(t, IsNotFound(svc.DeleteAssignment(ctx, a1.ID)))
}

func TestCounselorAssign_RollsBackDeactivation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.repos
	svc := NewCounselorService(r.Tx, r.Counselors, r.Users, r.Students, f.logger)

	student := f.student(t, "Aisha")
	first := f.user(t, "first@ilham.test", models.RoleCounselor)
	second := f.user(t, "second@ilham.test", models.RoleCounselor)

	a1, err := svc.Assign(ctx, &models.AssignCounselorRequest{StudentID: student.ID, CounselorID: first.ID})
	require.NoError(t, err)

	r.Store.FailOn("counselors.Create", assert.AnError)
	_, err = svc.Assign(ctx, &models.AssignCounselorRequest{StudentID: student.ID, CounselorID: second.ID})
	require.Error(t, err)

	current, err := svc.CounselorOf(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, a1.ID, current.ID)
}
