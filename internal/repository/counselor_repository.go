package repository

import (
	"context"
	"database/sql"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/rs/zerolog"
)

type CounselorRepository interface {
	DeactivateForStudent(ctx context.Context, studentID string) (int64, error)
	Create(ctx context.Context, assignment *models.CounselorAssignment) error
	GetByID(ctx context.Context, id string) (*models.CounselorAssignment, error)
	ListStudents(ctx context.Context, counselorID string, includeInactive bool) ([]models.CounselorAssignmentWithDetails, error)
	ActiveForStudent(ctx context.Context, studentID string) (*models.CounselorAssignmentWithDetails, error)
	SetActive(ctx context.Context, id string, active bool) (bool, error)
	List(ctx context.Context, isActive *bool) ([]models.CounselorAssignmentWithDetails, error)
	Delete(ctx context.Context, id string) (bool, error)
	ListCounselors(ctx context.Context) ([]models.CounselorWithLoad, error)
}

type counselorRepository struct {
	*PostgresRepository
}

func NewCounselorRepository(db *sql.DB, logger zerolog.Logger) CounselorRepository {
	return &counselorRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *counselorRepository) DeactivateForStudent(ctx context.Context, studentID string) (int64, error) {
	res, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE counselor_assignments SET is_active = FALSE WHERE student_id = $1 AND is_active = TRUE`,
		studentID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *counselorRepository) Create(ctx context.Context, a *models.CounselorAssignment) error {
	query := `
		INSERT INTO counselor_assignments (id, student_id, counselor_id, is_active, assigned_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.conn(ctx).ExecContext(ctx, query, a.ID, a.StudentID, a.CounselorID, a.IsActive, a.AssignedAt)
	return err
}

func (r *counselorRepository) GetByID(ctx context.Context, id string) (*models.CounselorAssignment, error) {
	query := `
		SELECT id, student_id, counselor_id, is_active, assigned_at
		FROM counselor_assignments
		WHERE id = $1
	`

	a := &models.CounselorAssignment{}
	err := r.conn(ctx).QueryRowContext(ctx, query, id).Scan(&a.ID, &a.StudentID, &a.CounselorID, &a.IsActive, &a.AssignedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

const assignmentDetailsSelect = `
	SELECT
		ca.id, ca.student_id, ca.counselor_id, ca.is_active, ca.assigned_at,
		s.full_name, su.email, cu.email
	FROM counselor_assignments ca
	JOIN students s ON s.id = ca.student_id
	JOIN users su ON su.id = s.user_id
	JOIN users cu ON cu.id = ca.counselor_id
`

func (r *counselorRepository) queryDetails(ctx context.Context, query string, args ...interface{}) ([]models.CounselorAssignmentWithDetails, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := []models.CounselorAssignmentWithDetails{}
	for rows.Next() {
		var a models.CounselorAssignmentWithDetails
		err := rows.Scan(
			&a.ID,
			&a.StudentID,
			&a.CounselorID,
			&a.IsActive,
			&a.AssignedAt,
			&a.StudentName,
			&a.StudentEmail,
			&a.CounselorEmail,
		)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

func (r *counselorRepository) ListStudents(ctx context.Context, counselorID string, includeInactive bool) ([]models.CounselorAssignmentWithDetails, error) {
	query := assignmentDetailsSelect + ` WHERE ca.counselor_id = $1`
	if !includeInactive {
		query += ` AND ca.is_active = TRUE`
	}
	query += ` ORDER BY ca.assigned_at DESC`
	return r.queryDetails(ctx, query, counselorID)
}

func (r *counselorRepository) ActiveForStudent(ctx context.Context, studentID string) (*models.CounselorAssignmentWithDetails, error) {
	assignments, err := r.queryDetails(ctx,
		assignmentDetailsSelect+` WHERE ca.student_id = $1 AND ca.is_active = TRUE ORDER BY ca.assigned_at DESC LIMIT 1`,
		studentID,
	)
	if err != nil || len(assignments) == 0 {
		return nil, err
	}
	return &assignments[0], nil
}

func (r *counselorRepository) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	res, err := r.conn(ctx).ExecContext(ctx, `UPDATE counselor_assignments SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *counselorRepository) List(ctx context.Context, isActive *bool) ([]models.CounselorAssignmentWithDetails, error) {
	if isActive != nil {
		return r.queryDetails(ctx, assignmentDetailsSelect+` WHERE ca.is_active = $1 ORDER BY ca.assigned_at DESC`, *isActive)
	}
	return r.queryDetails(ctx, assignmentDetailsSelect+` ORDER BY ca.assigned_at DESC`)
}

func (r *counselorRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM counselor_assignments WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *counselorRepository) ListCounselors(ctx context.Context) ([]models.CounselorWithLoad, error) {
	query := `
		SELECT u.id, u.email, COUNT(ca.id) FILTER (WHERE ca.is_active), u.created_at
		FROM users u
		LEFT JOIN counselor_assignments ca ON ca.counselor_id = u.id
		WHERE u.role = $1
		GROUP BY u.id, u.email, u.created_at
		ORDER BY u.email
	`

	rows, err := r.conn(ctx).QueryContext(ctx, query, models.RoleCounselor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counselors := []models.CounselorWithLoad{}
	for rows.Next() {
		var c models.CounselorWithLoad
		if err := rows.Scan(&c.ID, &c.Email, &c.ActiveStudents, &c.CreatedAt); err != nil {
			return nil, err
		}
		counselors = append(counselors, c)
	}

	return counselors, rows.Err()
}
