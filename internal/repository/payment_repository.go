package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/rs/zerolog"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	SumByInvoice(ctx context.Context, invoiceID string) (float64, error)
	GetAll(ctx context.Context) ([]models.PaymentWithDetails, error)
	GetByStudent(ctx context.Context, studentID string) ([]models.PaymentWithDetails, error)
	// Revenue sums payments of paid invoices.
	Revenue(ctx context.Context) (float64, error)
	MonthlyRevenue(ctx context.Context, since time.Time) ([]models.MonthlyRevenue, error)
}

type paymentRepository struct {
	*PostgresRepository
}

func NewPaymentRepository(db *sql.DB, logger zerolog.Logger) PaymentRepository {
	return &paymentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (id, invoice_id, amount, method, payment_date, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn(ctx).ExecContext(ctx, query,
		payment.ID,
		payment.InvoiceID,
		payment.Amount,
		payment.Method,
		payment.PaymentDate,
		nullString(payment.Notes),
		payment.CreatedAt,
	)

	return err
}

func (r *paymentRepository) SumByInvoice(ctx context.Context, invoiceID string) (float64, error) {
	var total float64
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1`,
		invoiceID,
	).Scan(&total)
	return total, err
}

const paymentDetailsSelect = `
	SELECT
		p.id, p.invoice_id, p.amount, p.method, p.payment_date, COALESCE(p.notes, ''), p.created_at,
		s.full_name, un.name
	FROM payments p
	JOIN invoices i ON i.id = p.invoice_id
	JOIN applications a ON a.id = i.application_id
	JOIN students s ON s.id = a.student_id
	JOIN universities un ON un.id = a.university_id
`

func (r *paymentRepository) queryDetails(ctx context.Context, query string, args ...interface{}) ([]models.PaymentWithDetails, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []models.PaymentWithDetails{}
	for rows.Next() {
		var p models.PaymentWithDetails
		err := rows.Scan(
			&p.ID,
			&p.InvoiceID,
			&p.Amount,
			&p.Method,
			&p.PaymentDate,
			&p.Notes,
			&p.CreatedAt,
			&p.StudentName,
			&p.UniversityName,
		)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

func (r *paymentRepository) GetAll(ctx context.Context) ([]models.PaymentWithDetails, error) {
	return r.queryDetails(ctx, paymentDetailsSelect+` ORDER BY p.payment_date DESC`)
}

func (r *paymentRepository) GetByStudent(ctx context.Context, studentID string) ([]models.PaymentWithDetails, error) {
	return r.queryDetails(ctx, paymentDetailsSelect+` WHERE s.id = $1 ORDER BY p.payment_date DESC`, studentID)
}

func (r *paymentRepository) Revenue(ctx context.Context) (float64, error) {
	query := `
		SELECT COALESCE(SUM(p.amount), 0)
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE i.status = $1
	`
	var total float64
	err := r.conn(ctx).QueryRowContext(ctx, query, models.InvoicePaid).Scan(&total)
	return total, err
}

func (r *paymentRepository) MonthlyRevenue(ctx context.Context, since time.Time) ([]models.MonthlyRevenue, error) {
	query := `
		SELECT TO_CHAR(DATE_TRUNC('month', p.payment_date), 'YYYY-MM') AS month, SUM(p.amount)
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE i.status = $1 AND p.payment_date >= $2
		GROUP BY month
		ORDER BY month
	`

	rows, err := r.conn(ctx).QueryContext(ctx, query, models.InvoicePaid, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	revenue := []models.MonthlyRevenue{}
	for rows.Next() {
		var m models.MonthlyRevenue
		if err := rows.Scan(&m.Month, &m.Revenue); err != nil {
			return nil, err
		}
		revenue = append(revenue, m)
	}

	return revenue, rows.Err()
}
