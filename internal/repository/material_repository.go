package repository

import (
	"context"
	"database/sql"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/rs/zerolog"
)

type MaterialRepository interface {
	Create(ctx context.Context, m *models.Material) error
	GetByID(ctx context.Context, id string) (*models.Material, error)
	List(ctx context.Context, freeOnly bool, limit int) ([]models.Material, error)
	Update(ctx context.Context, m *models.Material) error
	Delete(ctx context.Context, id string) (bool, error)
}

type materialRepository struct {
	*PostgresRepository
}

func NewMaterialRepository(db *sql.DB, logger zerolog.Logger) MaterialRepository {
	return &materialRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const materialSelect = `
	SELECT m.id, m.title, COALESCE(m.description, ''), m.material_type, m.file_url,
		COALESCE(m.course_id, ''), COALESCE(c.batch_name, ''), m.is_free, m.created_at
	FROM ielts_materials m
	LEFT JOIN ielts_courses c ON c.id = m.course_id
`

func scanMaterial(row interface{ Scan(...interface{}) error }) (*models.Material, error) {
	m := &models.Material{}
	err := row.Scan(
		&m.ID,
		&m.Title,
		&m.Description,
		&m.MaterialType,
		&m.FileURL,
		&m.CourseID,
		&m.CourseName,
		&m.IsFree,
		&m.CreatedAt,
	)
	return m, err
}

func (r *materialRepository) Create(ctx context.Context, m *models.Material) error {
	query := `
		INSERT INTO ielts_materials (id, title, description, material_type, file_url, course_id, is_free, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn(ctx).ExecContext(ctx, query,
		m.ID,
		m.Title,
		nullString(m.Description),
		m.MaterialType,
		m.FileURL,
		nullString(m.CourseID),
		m.IsFree,
		m.CreatedAt,
	)

	return err
}

func (r *materialRepository) GetByID(ctx context.Context, id string) (*models.Material, error) {
	m, err := scanMaterial(r.conn(ctx).QueryRowContext(ctx, materialSelect+` WHERE m.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// List returns materials newest first; limit <= 0 means no limit.
func (r *materialRepository) List(ctx context.Context, freeOnly bool, limit int) ([]models.Material, error) {
	query := materialSelect
	var args []interface{}
	if freeOnly {
		query += ` WHERE m.is_free = TRUE`
	}
	query += ` ORDER BY m.created_at DESC`
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $1`
	}

	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	materials := []models.Material{}
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		materials = append(materials, *m)
	}

	return materials, rows.Err()
}

func (r *materialRepository) Update(ctx context.Context, m *models.Material) error {
	query := `
		UPDATE ielts_materials
		SET title = $1, description = $2, material_type = $3, file_url = $4, course_id = $5, is_free = $6
		WHERE id = $7
	`

	_, err := r.conn(ctx).ExecContext(ctx, query,
		m.Title,
		nullString(m.Description),
		m.MaterialType,
		m.FileURL,
		nullString(m.CourseID),
		m.IsFree,
		m.ID,
	)

	return err
}

func (r *materialRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM ielts_materials WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
