package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/rs/zerolog"
)

type ReminderRepository interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	GetAll(ctx context.Context) ([]models.ReminderWithStudent, error)
	Delete(ctx context.Context, id string) (bool, error)
	// DeleteByInvoice removes reminders linked to the invoice by id or by a
	// note that mentions "invoice #<id>".
	DeleteByInvoice(ctx context.Context, invoiceID string) (int64, error)
	ExistsForInvoiceOn(ctx context.Context, invoiceID string, day time.Time) (bool, error)
}

type reminderRepository struct {
	*PostgresRepository
}

func NewReminderRepository(db *sql.DB, logger zerolog.Logger) ReminderRepository {
	return &reminderRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *reminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	query := `
		INSERT INTO reminders (id, student_id, invoice_id, note, reminder_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn(ctx).ExecContext(ctx, query,
		reminder.ID,
		reminder.StudentID,
		nullString(reminder.InvoiceID),
		reminder.Note,
		reminder.ReminderDate,
		reminder.CreatedAt,
	)

	return err
}

func (r *reminderRepository) GetAll(ctx context.Context) ([]models.ReminderWithStudent, error) {
	query := `
		SELECT r.id, r.student_id, COALESCE(r.invoice_id, ''), r.note, r.reminder_date, r.created_at, s.full_name
		FROM reminders r
		JOIN students s ON s.id = r.student_id
		ORDER BY r.reminder_date DESC, r.created_at DESC
	`

	rows, err := r.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reminders := []models.ReminderWithStudent{}
	for rows.Next() {
		var rem models.ReminderWithStudent
		err := rows.Scan(
			&rem.ID,
			&rem.StudentID,
			&rem.InvoiceID,
			&rem.Note,
			&rem.ReminderDate,
			&rem.CreatedAt,
			&rem.StudentName,
		)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}

	return reminders, rows.Err()
}

func (r *reminderRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM reminders WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *reminderRepository) DeleteByInvoice(ctx context.Context, invoiceID string) (int64, error) {
	query := `
		DELETE FROM reminders
		WHERE invoice_id = $1 OR note ILIKE '%' || $2 || '%'
	`

	res, err := r.conn(ctx).ExecContext(ctx, query, invoiceID, "invoice #"+invoiceID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *reminderRepository) ExistsForInvoiceOn(ctx context.Context, invoiceID string, day time.Time) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM reminders WHERE invoice_id = $1 AND reminder_date = $2::date)`
	var exists bool
	err := r.conn(ctx).QueryRowContext(ctx, query, invoiceID, day).Scan(&exists)
	return exists, err
}
