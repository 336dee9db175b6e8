package repository

import (
	"context"
	"database/sql"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/rs/zerolog"
)

type UniversityRepository interface {
	Create(ctx context.Context, university *models.University) error
	GetByID(ctx context.Context, id string) (*models.University, error)
	GetAll(ctx context.Context, activeOnly bool) ([]models.University, error)
	Update(ctx context.Context, university *models.University) error
	Delete(ctx context.Context, id string) (bool, error)
	CountActive(ctx context.Context) (int, error)
	ListPublic(ctx context.Context, limit int) ([]models.PublicUniversity, error)
}

type universityRepository struct {
	*PostgresRepository
}

func NewUniversityRepository(db *sql.DB, logger zerolog.Logger) UniversityRepository {
	return &universityRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const universityColumns = `id, name, country, COALESCE(requirements, ''), ielts_requirement, is_active, created_at, updated_at`

func scanUniversity(row interface{ Scan(...interface{}) error }) (*models.University, error) {
	university := &models.University{}
	var ielts sql.NullFloat64
	err := row.Scan(
		&university.ID,
		&university.Name,
		&university.Country,
		&university.Requirements,
		&ielts,
		&university.IsActive,
		&university.CreatedAt,
		&university.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	university.IELTSRequirement = floatPtr(ielts)
	return university, nil
}

func (r *universityRepository) Create(ctx context.Context, university *models.University) error {
	query := `
		INSERT INTO universities (id, name, country, requirements, ielts_requirement, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn(ctx).ExecContext(ctx, query,
		university.ID,
		university.Name,
		university.Country,
		nullString(university.Requirements),
		nullFloat(university.IELTSRequirement),
		university.IsActive,
		university.CreatedAt,
		university.UpdatedAt,
	)

	return err
}

func (r *universityRepository) GetByID(ctx context.Context, id string) (*models.University, error) {
	query := `SELECT ` + universityColumns + ` FROM universities WHERE id = $1`

	university, err := scanUniversity(r.conn(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return university, err
}

func (r *universityRepository) GetAll(ctx context.Context, activeOnly bool) ([]models.University, error) {
	query := `SELECT ` + universityColumns + ` FROM universities`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := r.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	universities := []models.University{}
	for rows.Next() {
		university, err := scanUniversity(rows)
		if err != nil {
			return nil, err
		}
		universities = append(universities, *university)
	}

	return universities, rows.Err()
}

func (r *universityRepository) Update(ctx context.Context, university *models.University) error {
	query := `
		UPDATE universities
		SET name = $1, country = $2, requirements = $3, ielts_requirement = $4, is_active = $5, updated_at = $6
		WHERE id = $7
	`

	_, err := r.conn(ctx).ExecContext(ctx, query,
		university.Name,
		university.Country,
		nullString(university.Requirements),
		nullFloat(university.IELTSRequirement),
		university.IsActive,
		university.UpdatedAt,
		university.ID,
	)

	return err
}

func (r *universityRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM universities WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *universityRepository) CountActive(ctx context.Context) (int, error) {
	var total int
	err := r.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM universities WHERE is_active = TRUE`).Scan(&total)
	return total, err
}

func (r *universityRepository) ListPublic(ctx context.Context, limit int) ([]models.PublicUniversity, error) {
	query := `
		SELECT name, country, ielts_requirement
		FROM universities
		WHERE is_active = TRUE
		ORDER BY created_at
		LIMIT $1
	`

	rows, err := r.conn(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	universities := []models.PublicUniversity{}
	for rows.Next() {
		var u models.PublicUniversity
		var ielts sql.NullFloat64
		if err := rows.Scan(&u.Name, &u.Country, &ielts); err != nil {
			return nil, err
		}
		u.IELTSRequirement = floatPtr(ielts)
		universities = append(universities, u)
	}

	return universities, rows.Err()
}
