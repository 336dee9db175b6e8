package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/service/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) ielts(t *testing.T, changes *int) (IELTSService, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)
	r := f.repos
	onChange := func(context.Context) { *changes++ }
	return NewIELTSService(r.IELTS, r.Materials, r.Students, store, 1<<20, onChange, f.logger), dir
}

func TestOverallBand(t *testing.T) {
	assert.Equal(t, 6.5, overallBand(6, 6.5, 6.5, 7))
	assert.Equal(t, 7.0, overallBand(7, 7, 7, 6.5))
	assert.Equal(t, 5.5, overallBand(5, 5.5, 5.5, 5.5))
}

func TestIELTSCourse_CreateAndEnroll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var changes int
	svc, _ := f.ielts(t, &changes)

	_, err := svc.CreateCourse(ctx, &models.CourseRequest{BatchName: "  "})
	asError[*ValidationError](t, err)

	_, err = svc.CreateCourse(ctx, &models.CourseRequest{
		BatchName: "Batch A",
		StartDate: "2025-03-01",
		EndDate:   "2025-02-01",
	})
	asError[*ValidationError](t, err)
	assert.Zero(t, changes)

	course, err := svc.CreateCourse(ctx, &models.CourseRequest{
		BatchName: "Batch A",
		StartDate: "2025-02-01",
		EndDate:   "2025-03-01",
	})
	require.NoError(t, err)
	assert.Equal(t, models.CourseActive, course.Status)
	assert.Equal(t, 1, changes)

	student := f.student(t, "Enrolled Student")
	require.NoError(t, svc.Enroll(ctx, student.UserID, course.ID))
	require.NoError(t, svc.Enroll(ctx, student.UserID, course.ID))

	mine, err := svc.MyCourses(ctx, student.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, course.ID, mine[0].ID)

	err = svc.Enroll(ctx, student.UserID, "missing")
	asError[*NotFoundError](t, err)

	closed, err := svc.CreateCourse(ctx, &models.CourseRequest{BatchName: "Batch B", Status: models.CourseInactive})
	require.NoError(t, err)
	err = svc.Enroll(ctx, student.UserID, closed.ID)
	asError[*ValidationError](t, err)

	require.NoError(t, svc.DeleteCourse(ctx, closed.ID))
	asError[*NotFoundError](t, svc.DeleteCourse(ctx, closed.ID))
	assert.Equal(t, 3, changes)
}

func TestIELTSMockTestRequiresDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var changes int
	svc, _ := f.ielts(t, &changes)

	course, err := svc.CreateCourse(ctx, &models.CourseRequest{BatchName: "Batch A"})
	require.NoError(t, err)

	_, err = svc.CreateMockTest(ctx, &models.MockTestRequest{CourseID: course.ID, TestName: "Mock 1"})
	asError[*ValidationError](t, err)

	_, err = svc.CreateMockTest(ctx, &models.MockTestRequest{CourseID: "missing", TestName: "Mock 1", TestDate: "2025-02-10"})
	asError[*NotFoundError](t, err)

	mock, err := svc.CreateMockTest(ctx, &models.MockTestRequest{CourseID: course.ID, TestName: " Mock 1 ", TestDate: "2025-02-10"})
	require.NoError(t, err)
	assert.Equal(t, "Mock 1", mock.TestName)

	mocks, err := svc.MockTests(ctx, course.ID)
	require.NoError(t, err)
	assert.Len(t, mocks, 1)
}

func TestIELTSRecordResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var changes int
	svc, _ := f.ielts(t, &changes)
	student := f.student(t, "Band Student")

	_, err := svc.RecordResult(ctx, &models.ResultRequest{StudentID: student.ID, Listening: 9.5})
	asError[*ValidationError](t, err)

	_, err = svc.RecordResult(ctx, &models.ResultRequest{StudentID: "missing", Listening: 6})
	asError[*NotFoundError](t, err)

	result, err := svc.RecordResult(ctx, &models.ResultRequest{
		StudentID: student.ID,
		Listening: 6,
		Reading:   6.5,
		Writing:   6.5,
		Speaking:  7,
	})
	require.NoError(t, err)
	assert.Equal(t, 6.5, result.Overall)

	explicit, err := svc.RecordResult(ctx, &models.ResultRequest{
		StudentID: student.ID,
		Listening: 6,
		Reading:   6,
		Writing:   6,
		Speaking:  6,
		Overall:   6.5,
	})
	require.NoError(t, err)
	assert.Equal(t, 6.5, explicit.Overall)

	results, err := svc.MyResults(ctx, student.UserID)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	r, err := svc.Readiness(ctx, student.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, r.TestsTaken)
	assert.Equal(t, 6.5, r.Average)
	assert.Equal(t, "Eligible", r.Status)
}

func TestIELTSMaterials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var changes int
	svc, dir := f.ielts(t, &changes)

	_, err := svc.CreateMaterial(ctx, &models.MaterialRequest{Title: "Reading pack", MaterialType: "PDF"}, nil)
	asError[*ValidationError](t, err)

	_, err = svc.CreateMaterial(ctx, &models.MaterialRequest{Title: "Huge", MaterialType: "PDF"}, &FileUpload{
		FileName: "huge.pdf",
		Size:     2 << 20,
		Content:  strings.NewReader("x"),
	})
	asError[*ValidationError](t, err)

	_, err = svc.CreateMaterial(ctx, &models.MaterialRequest{
		Title:        "Orphan",
		MaterialType: "Link",
		FileURL:      "https://example.com/orphan",
		CourseID:     "missing",
	}, nil)
	asError[*NotFoundError](t, err)
	assert.Zero(t, changes)

	body := "%PDF-1.4 reading practice"
	uploaded, err := svc.CreateMaterial(ctx, &models.MaterialRequest{
		Title:        "Reading pack",
		MaterialType: "PDF",
		IsFree:       true,
	}, &FileUpload{
		FileName:    "Reading.PDF",
		ContentType: "application/pdf",
		Size:        int64(len(body)),
		Content:     strings.NewReader(body),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uploaded.FileURL, "/uploads/materials/"))
	assert.True(t, strings.HasSuffix(uploaded.FileURL, ".pdf"))

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(uploaded.FileURL, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, body, string(stored))

	_, err = svc.CreateMaterial(ctx, &models.MaterialRequest{
		Title:        "Listening video",
		MaterialType: "Video",
		FileURL:      "https://example.com/listening",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, changes)

	free, err := svc.ListMaterials(ctx, true)
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, uploaded.ID, free[0].ID)

	all, err := svc.ListMaterials(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, svc.DeleteMaterial(ctx, uploaded.ID))
	asError[*NotFoundError](t, svc.DeleteMaterial(ctx, uploaded.ID))
	assert.Equal(t, 3, changes)
}
