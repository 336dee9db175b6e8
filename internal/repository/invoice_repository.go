package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/rs/zerolog"
)

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id string) (*models.Invoice, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Invoice, error)
	GetByApplication(ctx context.Context, applicationID string) (*models.Invoice, error)
	UpdateStatus(ctx context.Context, id, status string) error
	GetAll(ctx context.Context) ([]models.InvoiceWithDetails, error)
	GetByStudent(ctx context.Context, studentID string) ([]models.InvoiceWithDetails, error)
	ListUnpaid(ctx context.Context) ([]models.UnpaidInvoice, error)
	// ListDueBefore returns unpaid invoices with a due date on or before the given day.
	ListDueBefore(ctx context.Context, day time.Time) ([]models.UnpaidInvoice, error)
	PendingTotals(ctx context.Context) (int, float64, error)
}

type invoiceRepository struct {
	*PostgresRepository
}

func NewInvoiceRepository(db *sql.DB, logger zerolog.Logger) InvoiceRepository {
	return &invoiceRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const invoiceColumns = `id, application_id, amount, status, due_date, created_at, updated_at`

func scanInvoice(row interface{ Scan(...interface{}) error }) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	var due sql.NullTime
	err := row.Scan(
		&invoice.ID,
		&invoice.ApplicationID,
		&invoice.Amount,
		&invoice.Status,
		&due,
		&invoice.CreatedAt,
		&invoice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	invoice.DueDate = timePtr(due)
	return invoice, nil
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	query := `
		INSERT INTO invoices (id, application_id, amount, status, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn(ctx).ExecContext(ctx, query,
		invoice.ID,
		invoice.ApplicationID,
		invoice.Amount,
		invoice.Status,
		nullTime(invoice.DueDate),
		invoice.CreatedAt,
		invoice.UpdatedAt,
	)

	return err
}

func (r *invoiceRepository) getOne(ctx context.Context, query string, arg string) (*models.Invoice, error) {
	invoice, err := scanInvoice(r.conn(ctx).QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return invoice, err
}

func (r *invoiceRepository) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

func (r *invoiceRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id)
}

func (r *invoiceRepository) GetByApplication(ctx context.Context, applicationID string) (*models.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE application_id = $1`, applicationID)
}

func (r *invoiceRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.conn(ctx).ExecContext(ctx, query, status, id)
	return err
}

const invoiceDetailsSelect = `
	SELECT
		i.id, i.application_id, i.amount, i.status, i.due_date, i.created_at, i.updated_at,
		s.id, s.full_name, un.name,
		COALESCE((SELECT SUM(p.amount) FROM payments p WHERE p.invoice_id = i.id), 0)
	FROM invoices i
	JOIN applications a ON a.id = i.application_id
	JOIN students s ON s.id = a.student_id
	JOIN universities un ON un.id = a.university_id
`

func (r *invoiceRepository) queryDetails(ctx context.Context, query string, args ...interface{}) ([]models.InvoiceWithDetails, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := []models.InvoiceWithDetails{}
	for rows.Next() {
		var inv models.InvoiceWithDetails
		var due sql.NullTime
		err := rows.Scan(
			&inv.ID,
			&inv.ApplicationID,
			&inv.Amount,
			&inv.Status,
			&due,
			&inv.CreatedAt,
			&inv.UpdatedAt,
			&inv.StudentID,
			&inv.StudentName,
			&inv.UniversityName,
			&inv.PaidAmount,
		)
		if err != nil {
			return nil, err
		}
		inv.DueDate = timePtr(due)
		invoices = append(invoices, inv)
	}

	return invoices, rows.Err()
}

func (r *invoiceRepository) GetAll(ctx context.Context) ([]models.InvoiceWithDetails, error) {
	return r.queryDetails(ctx, invoiceDetailsSelect+` ORDER BY i.created_at DESC`)
}

func (r *invoiceRepository) GetByStudent(ctx context.Context, studentID string) ([]models.InvoiceWithDetails, error) {
	return r.queryDetails(ctx, invoiceDetailsSelect+` WHERE s.id = $1 ORDER BY i.created_at DESC`, studentID)
}

const unpaidSelect = `
	SELECT invoice_id, amount, due_date, invoice_date, application_id, student_id,
		student_name, university_name, university_country
	FROM v_unpaid_invoices
`

func (r *invoiceRepository) queryUnpaid(ctx context.Context, query string, args ...interface{}) ([]models.UnpaidInvoice, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := []models.UnpaidInvoice{}
	for rows.Next() {
		var inv models.UnpaidInvoice
		var due sql.NullTime
		err := rows.Scan(
			&inv.InvoiceID,
			&inv.Amount,
			&due,
			&inv.InvoiceDate,
			&inv.ApplicationID,
			&inv.StudentID,
			&inv.StudentName,
			&inv.UniversityName,
			&inv.UniversityCountry,
		)
		if err != nil {
			return nil, err
		}
		inv.DueDate = timePtr(due)
		invoices = append(invoices, inv)
	}

	return invoices, rows.Err()
}

func (r *invoiceRepository) ListUnpaid(ctx context.Context) ([]models.UnpaidInvoice, error) {
	return r.queryUnpaid(ctx, unpaidSelect+` ORDER BY invoice_date DESC`)
}

func (r *invoiceRepository) ListDueBefore(ctx context.Context, day time.Time) ([]models.UnpaidInvoice, error) {
	return r.queryUnpaid(ctx, unpaidSelect+` WHERE due_date IS NOT NULL AND due_date <= $1 ORDER BY due_date`, day)
}

func (r *invoiceRepository) PendingTotals(ctx context.Context) (int, float64, error) {
	var count int
	var amount float64
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM invoices WHERE status = $1`,
		models.InvoiceUnpaid,
	).Scan(&count, &amount)
	return count, amount, err
}
