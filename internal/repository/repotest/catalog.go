package repotest

import (
	"context"
	"sort"
	"time"

	"github.com/ilham-education/ilham-backend/internal/models"
)

type documentRepo struct{ s *Store }

func (r *documentRepo) Create(ctx context.Context, doc *models.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("documents.Create"); err != nil {
		return err
	}
	if _, ok := r.s.students[doc.StudentID]; !ok {
		return foreignKeyViolation("student_documents_student_id_fkey")
	}
	r.s.documents[doc.ID] = *doc
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, id string) (*models.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.documents[id]
	if !ok {
		return nil, nil
	}
	d.StudentName = r.s.students[d.StudentID].FullName
	return &d, nil
}

func (r *documentRepo) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Document{}
	for _, d := range r.s.documents {
		if filter.StudentID != "" && d.StudentID != filter.StudentID {
			continue
		}
		if filter.DocumentType != "" && d.DocumentType != filter.DocumentType {
			continue
		}
		if filter.Verified != nil && d.Verified != *filter.Verified {
			continue
		}
		d.StudentName = r.s.students[d.StudentID].FullName
		out = append(out, d)
	}
	newestFirst(out, func(d models.Document) time.Time { return d.UploadedAt })
	return out, nil
}

func (r *documentRepo) SetVerified(ctx context.Context, id string, verified bool, verifiedBy string, verifiedAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.documents[id]
	if !ok {
		return nil
	}
	d.Verified = verified
	d.VerifiedBy = verifiedBy
	d.VerifiedAt = verifiedAt
	r.s.documents[id] = d
	return nil
}

func (r *documentRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.documents[id]; !ok {
		return false, nil
	}
	delete(r.s.documents, id)
	return true, nil
}

type counselorRepo struct{ s *Store }

func (r *counselorRepo) DeactivateForStudent(ctx context.Context, studentID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, a := range r.s.assignments {
		if a.StudentID == studentID && a.IsActive {
			a.IsActive = false
			r.s.assignments[id] = a
			n++
		}
	}
	return n, nil
}

func (r *counselorRepo) Create(ctx context.Context, assignment *models.CounselorAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("counselors.Create"); err != nil {
		return err
	}
	r.s.assignments[assignment.ID] = *assignment
	return nil
}

func (r *counselorRepo) GetByID(ctx context.Context, id string) (*models.CounselorAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *counselorRepo) details(match func(models.CounselorAssignment) bool) []models.CounselorAssignmentWithDetails {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.CounselorAssignmentWithDetails{}
	for _, a := range r.s.assignments {
		if !match(a) {
			continue
		}
		st := r.s.students[a.StudentID]
		out = append(out, models.CounselorAssignmentWithDetails{
			CounselorAssignment: a,
			StudentName:         st.FullName,
			StudentEmail:        st.Email,
			CounselorEmail:      r.s.users[a.CounselorID].Email,
		})
	}
	newestFirst(out, func(a models.CounselorAssignmentWithDetails) time.Time { return a.AssignedAt })
	return out
}

func (r *counselorRepo) ListStudents(ctx context.Context, counselorID string, includeInactive bool) ([]models.CounselorAssignmentWithDetails, error) {
	return r.details(func(a models.CounselorAssignment) bool {
		return a.CounselorID == counselorID && (includeInactive || a.IsActive)
	}), nil
}

func (r *counselorRepo) ActiveForStudent(ctx context.Context, studentID string) (*models.CounselorAssignmentWithDetails, error) {
	found := r.details(func(a models.CounselorAssignment) bool {
		return a.StudentID == studentID && a.IsActive
	})
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (r *counselorRepo) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return false, nil
	}
	a.IsActive = active
	r.s.assignments[id] = a
	return true, nil
}

func (r *counselorRepo) List(ctx context.Context, isActive *bool) ([]models.CounselorAssignmentWithDetails, error) {
	return r.details(func(a models.CounselorAssignment) bool {
		return isActive == nil || a.IsActive == *isActive
	}), nil
}

func (r *counselorRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.assignments[id]; !ok {
		return false, nil
	}
	delete(r.s.assignments, id)
	return true, nil
}

func (r *counselorRepo) ListCounselors(ctx context.Context) ([]models.CounselorWithLoad, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.CounselorWithLoad{}
	for _, u := range r.s.users {
		if u.Role != models.RoleCounselor {
			continue
		}
		c := models.CounselorWithLoad{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
		for _, a := range r.s.assignments {
			if a.CounselorID == u.ID && a.IsActive {
				c.ActiveStudents++
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

type contentRepo struct{ s *Store }

func (r *contentRepo) GetAll(ctx context.Context) (map[string]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("content.GetAll"); err != nil {
		return nil, err
	}
	return copyMap(r.s.content), nil
}

func (r *contentRepo) Upsert(ctx context.Context, key, value string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("content.Upsert"); err != nil {
		return err
	}
	r.s.content[key] = value
	return nil
}

func (r *contentRepo) ActiveCourses(ctx context.Context, limit int) ([]models.PublicCourse, error) {
	courses, _ := (&ieltsRepo{r.s}).ListCourses(ctx, true)
	out := []models.PublicCourse{}
	for _, c := range courses {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, models.PublicCourse{BatchName: c.BatchName, StartDate: c.StartDate})
	}
	return out, nil
}

func (r *contentRepo) Materials(ctx context.Context, limit int) ([]models.PublicMaterial, error) {
	materials, _ := (&materialRepo{r.s}).List(ctx, false, limit)
	out := make([]models.PublicMaterial, 0, len(materials))
	for _, m := range materials {
		out = append(out, models.PublicMaterial{Title: m.Title, Link: m.FileURL, Type: m.MaterialType})
	}
	return out, nil
}

type ieltsRepo struct{ s *Store }

func (r *ieltsRepo) CreateCourse(ctx context.Context, course *models.IELTSCourse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.courses[course.ID] = *course
	return nil
}

func (r *ieltsRepo) GetCourse(ctx context.Context, id string) (*models.IELTSCourse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.courses[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *ieltsRepo) ListCourses(ctx context.Context, activeOnly bool) ([]models.IELTSCourse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.IELTSCourse{}
	for _, c := range r.s.courses {
		if activeOnly && c.Status != models.CourseActive {
			continue
		}
		out = append(out, c)
	}
	newestFirst(out, func(c models.IELTSCourse) time.Time { return c.CreatedAt })
	return out, nil
}

func (r *ieltsRepo) UpdateCourse(ctx context.Context, course *models.IELTSCourse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.courses[course.ID]; ok {
		r.s.courses[course.ID] = *course
	}
	return nil
}

func (r *ieltsRepo) DeleteCourse(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.courses[id]; !ok {
		return false, nil
	}
	delete(r.s.courses, id)
	kept := r.s.enrollments[:0]
	for _, e := range r.s.enrollments {
		if e.CourseID != id {
			kept = append(kept, e)
		}
	}
	r.s.enrollments = kept
	return true, nil
}

func (r *ieltsRepo) Enroll(ctx context.Context, id, studentID, courseID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return nil
		}
	}
	r.s.enrollments = append(r.s.enrollments, enrollment{ID: id, StudentID: studentID, CourseID: courseID})
	return nil
}

func (r *ieltsRepo) enrolledLocked(studentID string) map[string]bool {
	courses := map[string]bool{}
	for _, e := range r.s.enrollments {
		if e.StudentID == studentID {
			courses[e.CourseID] = true
		}
	}
	return courses
}

func (r *ieltsRepo) CoursesOfStudent(ctx context.Context, studentID string) ([]models.IELTSCourse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.IELTSCourse{}
	for i := len(r.s.enrollments) - 1; i >= 0; i-- {
		e := r.s.enrollments[i]
		if c, ok := r.s.courses[e.CourseID]; ok && e.StudentID == studentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *ieltsRepo) CreateMockTest(ctx context.Context, mock *models.MockTest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.courses[mock.CourseID]; !ok {
		return foreignKeyViolation("ielts_mock_tests_course_id_fkey")
	}
	r.s.mocks[mock.ID] = *mock
	return nil
}

func (r *ieltsRepo) mocksLocked(match func(models.MockTest) bool) []models.MockTest {
	out := []models.MockTest{}
	for _, m := range r.s.mocks {
		if match(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TestDate.Before(out[j].TestDate) })
	return out
}

func (r *ieltsRepo) ListMockTests(ctx context.Context, courseID string) ([]models.MockTest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.mocksLocked(func(m models.MockTest) bool { return m.CourseID == courseID }), nil
}

func (r *ieltsRepo) UpcomingMockTests(ctx context.Context, studentID string, from time.Time) ([]models.MockTest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	enrolled := r.enrolledLocked(studentID)
	out := r.mocksLocked(func(m models.MockTest) bool {
		return enrolled[m.CourseID] && !m.TestDate.Before(from)
	})
	if len(out) > 5 {
		out = out[:5]
	}
	return out, nil
}

func (r *ieltsRepo) CountMockTests(ctx context.Context, studentID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	enrolled := r.enrolledLocked(studentID)
	return len(r.mocksLocked(func(m models.MockTest) bool { return enrolled[m.CourseID] })), nil
}

func (r *ieltsRepo) CreateResult(ctx context.Context, result *models.IELTSResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.students[result.StudentID]; !ok {
		return foreignKeyViolation("ielts_results_student_id_fkey")
	}
	r.s.results = append(r.s.results, *result)
	return nil
}

func (r *ieltsRepo) ResultsOfStudent(ctx context.Context, studentID string) ([]models.IELTSResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.IELTSResult{}
	for _, res := range r.s.results {
		if res.StudentID != studentID {
			continue
		}
		res.TestName = r.s.mocks[res.MockTestID].TestName
		out = append(out, res)
	}
	newestFirst(out, func(res models.IELTSResult) time.Time { return res.DateTaken })
	return out, nil
}

func (r *ieltsRepo) AverageOverall(ctx context.Context, studentID string) (float64, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var sum float64
	var n int
	for _, res := range r.s.results {
		if res.StudentID == studentID {
			sum += res.Overall
			n++
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return sum / float64(n), n, nil
}

type materialRepo struct{ s *Store }

func (r *materialRepo) Create(ctx context.Context, m *models.Material) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m.CourseID != "" {
		if _, ok := r.s.courses[m.CourseID]; !ok {
			return foreignKeyViolation("ielts_materials_course_id_fkey")
		}
	}
	r.s.materials[m.ID] = *m
	return nil
}

func (r *materialRepo) GetByID(ctx context.Context, id string) (*models.Material, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.materials[id]
	if !ok {
		return nil, nil
	}
	m.CourseName = r.s.courses[m.CourseID].BatchName
	return &m, nil
}

func (r *materialRepo) List(ctx context.Context, freeOnly bool, limit int) ([]models.Material, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Material{}
	for _, m := range r.s.materials {
		if freeOnly && !m.IsFree {
			continue
		}
		m.CourseName = r.s.courses[m.CourseID].BatchName
		out = append(out, m)
	}
	newestFirst(out, func(m models.Material) time.Time { return m.CreatedAt })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *materialRepo) Update(ctx context.Context, m *models.Material) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.materials[m.ID]; ok {
		r.s.materials[m.ID] = *m
	}
	return nil
}

func (r *materialRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.materials[id]; !ok {
		return false, nil
	}
	delete(r.s.materials, id)
	return true, nil
}
