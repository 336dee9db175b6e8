package repository

import (
	"context"
	"database/sql"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/rs/zerolog"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetAll(ctx context.Context) ([]models.NotificationWithStudent, error)
	GetByStudent(ctx context.Context, studentID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) (bool, error)
	MarkReadForStudent(ctx context.Context, id, studentID string) (bool, error)
	MarkAllRead(ctx context.Context, studentID string) (int64, error)
	Delete(ctx context.Context, id string) (bool, error)
	UnreadCounts(ctx context.Context) ([]models.UnreadCount, error)
}

type notificationRepository struct {
	*PostgresRepository
}

func NewNotificationRepository(db *sql.DB, logger zerolog.Logger) NotificationRepository {
	return &notificationRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, student_id, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn(ctx).ExecContext(ctx, query,
		n.ID,
		n.StudentID,
		n.Message,
		n.IsRead,
		n.CreatedAt,
	)

	return err
}

func (r *notificationRepository) GetAll(ctx context.Context) ([]models.NotificationWithStudent, error) {
	query := `
		SELECT n.id, n.student_id, n.message, n.is_read, n.created_at, s.full_name
		FROM notifications n
		JOIN students s ON s.id = n.student_id
		ORDER BY n.created_at DESC
	`

	rows, err := r.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []models.NotificationWithStudent{}
	for rows.Next() {
		var n models.NotificationWithStudent
		if err := rows.Scan(&n.ID, &n.StudentID, &n.Message, &n.IsRead, &n.CreatedAt, &n.StudentName); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

func (r *notificationRepository) GetByStudent(ctx context.Context, studentID string) ([]models.Notification, error) {
	query := `
		SELECT id, student_id, message, is_read, created_at
		FROM notifications
		WHERE student_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.conn(ctx).QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.StudentID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

func (r *notificationRepository) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) (bool, error) {
	n, err := r.exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	return n > 0, err
}

func (r *notificationRepository) MarkReadForStudent(ctx context.Context, id, studentID string) (bool, error) {
	n, err := r.exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND student_id = $2`, id, studentID)
	return n > 0, err
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, studentID string) (int64, error) {
	return r.exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE student_id = $1 AND is_read = FALSE`, studentID)
}

func (r *notificationRepository) Delete(ctx context.Context, id string) (bool, error) {
	n, err := r.exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	return n > 0, err
}

func (r *notificationRepository) UnreadCounts(ctx context.Context) ([]models.UnreadCount, error) {
	query := `
		SELECT student_id, student_name, unread_count
		FROM v_unread_notifications
		ORDER BY unread_count DESC, student_name
	`

	rows, err := r.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []models.UnreadCount{}
	for rows.Next() {
		var c models.UnreadCount
		if err := rows.Scan(&c.StudentID, &c.StudentName, &c.UnreadCount); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}
