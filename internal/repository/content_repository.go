package repository

import (
	"context"
	"database/sql"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/rs/zerolog"
)

type ContentRepository interface {
	GetAll(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, key, value string) error
	ActiveCourses(ctx context.Context, limit int) ([]models.PublicCourse, error)
	Materials(ctx context.Context, limit int) ([]models.PublicMaterial, error)
}

type contentRepository struct {
	*PostgresRepository
}

func NewContentRepository(db *sql.DB, logger zerolog.Logger) ContentRepository {
	return &contentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *contentRepository) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, `SELECT section_key, content_value FROM site_content`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	content := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		content[key] = value
	}

	return content, rows.Err()
}

func (r *contentRepository) Upsert(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO site_content (section_key, content_value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (section_key) DO UPDATE SET
			content_value = EXCLUDED.content_value,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.conn(ctx).ExecContext(ctx, query, key, value)
	return err
}

func (r *contentRepository) ActiveCourses(ctx context.Context, limit int) ([]models.PublicCourse, error) {
	query := `
		SELECT batch_name, start_date
		FROM ielts_courses
		WHERE status = $1
		ORDER BY start_date NULLS LAST
		LIMIT $2
	`

	rows, err := r.conn(ctx).QueryContext(ctx, query, models.CourseActive, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := []models.PublicCourse{}
	for rows.Next() {
		var c models.PublicCourse
		var start sql.NullTime
		if err := rows.Scan(&c.BatchName, &start); err != nil {
			return nil, err
		}
		c.StartDate = timePtr(start)
		courses = append(courses, c)
	}

	return courses, rows.Err()
}

func (r *contentRepository) Materials(ctx context.Context, limit int) ([]models.PublicMaterial, error) {
	query := `
		SELECT title, file_url, material_type
		FROM ielts_materials
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.conn(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	materials := []models.PublicMaterial{}
	for rows.Next() {
		var m models.PublicMaterial
		if err := rows.Scan(&m.Title, &m.Link, &m.Type); err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}

	return materials, rows.Err()
}
