package repotest

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ilham-education/ilham-backend/internal/models"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.Create"); err != nil {
		return err
	}
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return uniqueViolation("users_email_key")
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *userRepo) update(id string, fn func(u *models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	r.s.users[id] = u
	return nil
}

func (r *userRepo) SetOTP(ctx context.Context, id, code string, expiresAt time.Time) error {
	return r.update(id, func(u *models.User) {
		u.OTPCode = code
		u.OTPExpiresAt = &expiresAt
	})
}

func (r *userRepo) MarkVerified(ctx context.Context, id string) error {
	return r.update(id, func(u *models.User) {
		u.IsVerified = true
		u.OTPCode = ""
		u.OTPExpiresAt = nil
	})
}

func (r *userRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(id, func(u *models.User) {
		u.PasswordHash = passwordHash
		u.OTPCode = ""
		u.OTPExpiresAt = nil
	})
}

// Delete removes the user and cascades to the student profile and
// everything hanging off it.
func (r *userRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, id)
	for sid, st := range r.s.students {
		if st.UserID == id {
			r.s.deleteStudentLocked(sid)
		}
	}
	for aid, a := range r.s.assignments {
		if a.CounselorID == id {
			delete(r.s.assignments, aid)
		}
	}
	return nil
}

func (s *Store) deleteStudentLocked(studentID string) {
	delete(s.students, studentID)
	delete(s.guardians, studentID)
	for id, a := range s.applications {
		if a.StudentID == studentID {
			s.deleteApplicationLocked(id)
		}
	}
	for id, n := range s.notifications {
		if n.StudentID == studentID {
			delete(s.notifications, id)
		}
	}
	for id, rm := range s.reminders {
		if rm.StudentID == studentID {
			delete(s.reminders, id)
		}
	}
	for id, d := range s.documents {
		if d.StudentID == studentID {
			delete(s.documents, id)
		}
	}
	for id, a := range s.assignments {
		if a.StudentID == studentID {
			delete(s.assignments, id)
		}
	}
}

type studentRepo struct{ s *Store }

func (r *studentRepo) Create(ctx context.Context, student *models.Student) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("students.Create"); err != nil {
		return err
	}
	if _, ok := r.s.users[student.UserID]; student.UserID != "" && !ok {
		return foreignKeyViolation("students_user_id_fkey")
	}
	r.s.students[student.ID] = *student
	return nil
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*models.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.students[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (r *studentRepo) GetByUserID(ctx context.Context, userID string) (*models.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.students {
		if st.UserID == userID {
			return &st, nil
		}
	}
	return nil, nil
}

func (r *studentRepo) GetAll(ctx context.Context) ([]models.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Student, 0, len(r.s.students))
	for _, st := range r.s.students {
		out = append(out, st)
	}
	newestFirst(out, func(st models.Student) time.Time { return st.CreatedAt })
	return out, nil
}

func (r *studentRepo) Update(ctx context.Context, student *models.Student) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.students[student.ID]; !ok {
		return nil
	}
	r.s.students[student.ID] = *student
	return nil
}

func (r *studentRepo) UpdatePhoto(ctx context.Context, id, photoURL string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.students[id]
	if !ok {
		return nil
	}
	st.PhotoURL = photoURL
	r.s.students[id] = st
	return nil
}

func (r *studentRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.students), nil
}

func (r *studentRepo) GetGuardian(ctx context.Context, studentID string) (*models.Guardian, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.guardians[studentID]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (r *studentRepo) UpsertGuardian(ctx context.Context, guardian *models.Guardian) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.guardians[guardian.StudentID]; ok {
		guardian.ID = existing.ID
		guardian.CreatedAt = existing.CreatedAt
	}
	r.s.guardians[guardian.StudentID] = *guardian
	return nil
}

type universityRepo struct{ s *Store }

func (r *universityRepo) Create(ctx context.Context, university *models.University) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.universities[university.ID] = *university
	return nil
}

func (r *universityRepo) GetByID(ctx context.Context, id string) (*models.University, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.universities[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *universityRepo) GetAll(ctx context.Context, activeOnly bool) ([]models.University, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.University, 0, len(r.s.universities))
	for _, u := range r.s.universities {
		if activeOnly && !u.IsActive {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *universityRepo) Update(ctx context.Context, university *models.University) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.universities[university.ID]; ok {
		r.s.universities[university.ID] = *university
	}
	return nil
}

func (r *universityRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.universities[id]; !ok {
		return false, nil
	}
	for _, a := range r.s.applications {
		if a.UniversityID == id {
			return false, foreignKeyViolation("applications_university_id_fkey")
		}
	}
	delete(r.s.universities, id)
	return true, nil
}

func (r *universityRepo) CountActive(ctx context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, u := range r.s.universities {
		if u.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *universityRepo) ListPublic(ctx context.Context, limit int) ([]models.PublicUniversity, error) {
	all, _ := r.GetAll(ctx, true)
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	out := make([]models.PublicUniversity, 0, len(all))
	for _, u := range all {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, models.PublicUniversity{Name: u.Name, Country: u.Country, IELTSRequirement: u.IELTSRequirement})
	}
	return out, nil
}
