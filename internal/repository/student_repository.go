package repository

import (
	"context"
	"database/sql"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/rs/zerolog"
)

type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	GetByID(ctx context.Context, id string) (*models.Student, error)
	GetByUserID(ctx context.Context, userID string) (*models.Student, error)
	GetAll(ctx context.Context) ([]models.Student, error)
	Update(ctx context.Context, student *models.Student) error
	UpdatePhoto(ctx context.Context, id, photoURL string) error
	Count(ctx context.Context) (int, error)
	GetGuardian(ctx context.Context, studentID string) (*models.Guardian, error)
	UpsertGuardian(ctx context.Context, guardian *models.Guardian) error
}

type studentRepository struct {
	*PostgresRepository
}

func NewStudentRepository(db *sql.DB, logger zerolog.Logger) StudentRepository {
	return &studentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const studentSelect = `
	SELECT
		s.id, s.user_id, u.email, s.full_name,
		COALESCE(s.phone, ''), s.dob, COALESCE(s.address, ''),
		COALESCE(s.passport_no, ''), COALESCE(s.nationality, ''), COALESCE(s.photo_url, ''),
		s.created_at, s.updated_at
	FROM students s
	JOIN users u ON u.id = s.user_id
`

func scanStudent(row interface{ Scan(...interface{}) error }) (*models.Student, error) {
	student := &models.Student{}
	var dob sql.NullTime
	err := row.Scan(
		&student.ID,
		&student.UserID,
		&student.Email,
		&student.FullName,
		&student.Phone,
		&dob,
		&student.Address,
		&student.PassportNo,
		&student.Nationality,
		&student.PhotoURL,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	student.DOB = timePtr(dob)
	return student, nil
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	query := `
		INSERT INTO students (id, user_id, full_name, phone, dob, address, passport_no, nationality, photo_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.conn(ctx).ExecContext(ctx, query,
		student.ID,
		student.UserID,
		student.FullName,
		nullString(student.Phone),
		nullTime(student.DOB),
		nullString(student.Address),
		nullString(student.PassportNo),
		nullString(student.Nationality),
		nullString(student.PhotoURL),
		student.CreatedAt,
		student.UpdatedAt,
	)

	return err
}

func (r *studentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	student, err := scanStudent(r.conn(ctx).QueryRowContext(ctx, studentSelect+` WHERE s.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return student, err
}

func (r *studentRepository) GetByUserID(ctx context.Context, userID string) (*models.Student, error) {
	student, err := scanStudent(r.conn(ctx).QueryRowContext(ctx, studentSelect+` WHERE s.user_id = $1`, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return student, err
}

func (r *studentRepository) GetAll(ctx context.Context) ([]models.Student, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, studentSelect+` ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := []models.Student{}
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *student)
	}

	return students, rows.Err()
}

func (r *studentRepository) Update(ctx context.Context, student *models.Student) error {
	query := `
		UPDATE students
		SET full_name = $1, phone = $2, dob = $3, address = $4, passport_no = $5, nationality = $6, updated_at = $7
		WHERE id = $8
	`

	_, err := r.conn(ctx).ExecContext(ctx, query,
		student.FullName,
		nullString(student.Phone),
		nullTime(student.DOB),
		nullString(student.Address),
		nullString(student.PassportNo),
		nullString(student.Nationality),
		student.UpdatedAt,
		student.ID,
	)

	return err
}

func (r *studentRepository) UpdatePhoto(ctx context.Context, id, photoURL string) error {
	query := `UPDATE students SET photo_url = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.conn(ctx).ExecContext(ctx, query, photoURL, id)
	return err
}

func (r *studentRepository) Count(ctx context.Context) (int, error) {
	var total int
	err := r.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&total)
	return total, err
}

func (r *studentRepository) GetGuardian(ctx context.Context, studentID string) (*models.Guardian, error) {
	query := `
		SELECT id, student_id, guardian_name, COALESCE(relationship, ''), COALESCE(guardian_phone, ''),
			COALESCE(guardian_email, ''), COALESCE(guardian_address, ''), created_at, updated_at
		FROM guardians
		WHERE student_id = $1
	`

	guardian := &models.Guardian{}
	err := r.conn(ctx).QueryRowContext(ctx, query, studentID).Scan(
		&guardian.ID,
		&guardian.StudentID,
		&guardian.Name,
		&guardian.Relationship,
		&guardian.Phone,
		&guardian.Email,
		&guardian.Address,
		&guardian.CreatedAt,
		&guardian.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return guardian, err
}

func (r *studentRepository) UpsertGuardian(ctx context.Context, guardian *models.Guardian) error {
	query := `
		INSERT INTO guardians (id, student_id, guardian_name, relationship, guardian_phone, guardian_email, guardian_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (student_id) DO UPDATE SET
			guardian_name = EXCLUDED.guardian_name,
			relationship = EXCLUDED.relationship,
			guardian_phone = EXCLUDED.guardian_phone,
			guardian_email = EXCLUDED.guardian_email,
			guardian_address = EXCLUDED.guardian_address,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn(ctx).ExecContext(ctx, query,
		guardian.ID,
		guardian.StudentID,
		guardian.Name,
		nullString(guardian.Relationship),
		nullString(guardian.Phone),
		nullString(guardian.Email),
		nullString(guardian.Address),
		guardian.CreatedAt,
		guardian.UpdatedAt,
	)

	return err
}
