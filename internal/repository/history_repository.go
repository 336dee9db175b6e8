package repository

import (
	"context"
	"database/sql"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/rs/zerolog"
)

type HistoryRepository interface {
	Create(ctx context.Context, entry *models.ApplicationHistory) error
	ListByApplication(ctx context.Context, applicationID string) ([]models.ApplicationHistory, error)
}

type historyRepository struct {
	*PostgresRepository
}

func NewHistoryRepository(db *sql.DB, logger zerolog.Logger) HistoryRepository {
	return &historyRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *historyRepository) Create(ctx context.Context, entry *models.ApplicationHistory) error {
	query := `
		INSERT INTO application_history (id, application_id, old_status, new_status, remark, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn(ctx).ExecContext(ctx, query,
		entry.ID,
		entry.ApplicationID,
		nullString(string(entry.OldStatus)),
		entry.NewStatus,
		nullString(entry.Remark),
		nullString(entry.ChangedBy),
		entry.ChangedAt,
	)

	return err
}

func (r *historyRepository) ListByApplication(ctx context.Context, applicationID string) ([]models.ApplicationHistory, error) {
	query := `
		SELECT
			h.id, h.application_id, COALESCE(h.old_status, ''), h.new_status, COALESCE(h.remark, ''),
			COALESCE(h.changed_by, ''), COALESCE(u.email, ''), h.changed_at
		FROM application_history h
		LEFT JOIN users u ON u.id = h.changed_by
		WHERE h.application_id = $1
		ORDER BY h.changed_at ASC, h.id ASC
	`

	rows, err := r.conn(ctx).QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []models.ApplicationHistory{}
	for rows.Next() {
		var h models.ApplicationHistory
		err := rows.Scan(
			&h.ID,
			&h.ApplicationID,
			&h.OldStatus,
			&h.NewStatus,
			&h.Remark,
			&h.ChangedBy,
			&h.ChangedByEmail,
			&h.ChangedAt,
		)
		if err != nil {
			return nil, err
		}
		history = append(history, h)
	}

	return history, rows.Err()
}
