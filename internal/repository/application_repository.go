package repository

import (
	"context"
	"database/sql"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/rs/zerolog"
)

// ActivePairIndex is the partial unique index that allows one non-Rejected
// application per student and university.
const ActivePairIndex = "idx_applications_active_pair"

type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id string) (*models.Application, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Application, error)
	// LockPair returns every application of the pair and locks the rows
	// when called inside a transaction.
	LockPair(ctx context.Context, studentID, universityID string) ([]models.Application, error)
	DeleteRejected(ctx context.Context, studentID, universityID string) (int64, error)
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, remark string) error
	UpdateUniversity(ctx context.Context, id, universityID string) error
	GetAll(ctx context.Context) ([]models.ApplicationWithDetails, error)
	GetByStudent(ctx context.Context, studentID string) ([]models.ApplicationWithDetails, error)
	CountByStatus(ctx context.Context, studentID string) (map[models.ApplicationStatus]int, error)
	Summary(ctx context.Context, studentID string) ([]models.ApplicationSummary, error)
}

type applicationRepository struct {
	*PostgresRepository
}

func NewApplicationRepository(db *sql.DB, logger zerolog.Logger) ApplicationRepository {
	return &applicationRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const applicationColumns = `id, student_id, university_id, status, COALESCE(counselor_remark, ''), created_at, updated_at`

func scanApplication(row interface{ Scan(...interface{}) error }) (*models.Application, error) {
	app := &models.Application{}
	err := row.Scan(
		&app.ID,
		&app.StudentID,
		&app.UniversityID,
		&app.Status,
		&app.CounselorRemark,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	return app, err
}

func (r *applicationRepository) Create(ctx context.Context, app *models.Application) error {
	query := `
		INSERT INTO applications (id, student_id, university_id, status, counselor_remark, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn(ctx).ExecContext(ctx, query,
		app.ID,
		app.StudentID,
		app.UniversityID,
		app.Status,
		nullString(app.CounselorRemark),
		app.CreatedAt,
		app.UpdatedAt,
	)

	return err
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	app, err := scanApplication(r.conn(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return app, err
}

func (r *applicationRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1 FOR UPDATE`

	app, err := scanApplication(r.conn(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return app, err
}

func (r *applicationRepository) LockPair(ctx context.Context, studentID, universityID string) ([]models.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE student_id = $1 AND university_id = $2
		ORDER BY created_at
		FOR UPDATE
	`

	rows, err := r.conn(ctx).QueryContext(ctx, query, studentID, universityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}

	return apps, rows.Err()
}

func (r *applicationRepository) DeleteRejected(ctx context.Context, studentID, universityID string) (int64, error) {
	query := `
		DELETE FROM applications
		WHERE student_id = $1 AND university_id = $2 AND status = $3
	`

	res, err := r.conn(ctx).ExecContext(ctx, query, studentID, universityID, models.StatusRejected)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *applicationRepository) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, remark string) error {
	query := `
		UPDATE applications
		SET status = $1, counselor_remark = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := r.conn(ctx).ExecContext(ctx, query, status, nullString(remark), id)
	return err
}

func (r *applicationRepository) UpdateUniversity(ctx context.Context, id, universityID string) error {
	query := `UPDATE applications SET university_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.conn(ctx).ExecContext(ctx, query, universityID, id)
	return err
}

const applicationDetailsSelect = `
	SELECT
		a.id, a.student_id, a.university_id, a.status, COALESCE(a.counselor_remark, ''),
		a.created_at, a.updated_at,
		s.full_name, un.name, un.country
	FROM applications a
	JOIN students s ON s.id = a.student_id
	JOIN universities un ON un.id = a.university_id
`

func (r *applicationRepository) queryDetails(ctx context.Context, query string, args ...interface{}) ([]models.ApplicationWithDetails, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := []models.ApplicationWithDetails{}
	for rows.Next() {
		var app models.ApplicationWithDetails
		err := rows.Scan(
			&app.ID,
			&app.StudentID,
			&app.UniversityID,
			&app.Status,
			&app.CounselorRemark,
			&app.CreatedAt,
			&app.UpdatedAt,
			&app.StudentName,
			&app.UniversityName,
			&app.Country,
		)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}

	return apps, rows.Err()
}

func (r *applicationRepository) GetAll(ctx context.Context) ([]models.ApplicationWithDetails, error) {
	return r.queryDetails(ctx, applicationDetailsSelect+` ORDER BY a.created_at DESC`)
}

func (r *applicationRepository) GetByStudent(ctx context.Context, studentID string) ([]models.ApplicationWithDetails, error) {
	return r.queryDetails(ctx, applicationDetailsSelect+` WHERE a.student_id = $1 ORDER BY a.created_at DESC`, studentID)
}

// CountByStatus counts applications per status; an empty studentID counts all.
func (r *applicationRepository) CountByStatus(ctx context.Context, studentID string) (map[models.ApplicationStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM applications`
	var args []interface{}
	if studentID != "" {
		query += ` WHERE student_id = $1`
		args = append(args, studentID)
	}
	query += ` GROUP BY status`

	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.ApplicationStatus]int)
	for rows.Next() {
		var status models.ApplicationStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}

	return counts, rows.Err()
}

func (r *applicationRepository) Summary(ctx context.Context, studentID string) ([]models.ApplicationSummary, error) {
	query := `
		SELECT application_id, student_id, student_name, student_email, university_id,
			university_name, country, status, applied_at, updated_at, COALESCE(counselor_remark, '')
		FROM v_student_applications
	`
	var args []interface{}
	if studentID != "" {
		query += ` WHERE student_id = $1`
		args = append(args, studentID)
	}
	query += ` ORDER BY applied_at DESC`

	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []models.ApplicationSummary{}
	for rows.Next() {
		var s models.ApplicationSummary
		err := rows.Scan(
			&s.ApplicationID,
			&s.StudentID,
			&s.StudentName,
			&s.StudentEmail,
			&s.UniversityID,
			&s.UniversityName,
			&s.Country,
			&s.Status,
			&s.AppliedAt,
			&s.UpdatedAt,
			&s.CounselorRemark,
		)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}
