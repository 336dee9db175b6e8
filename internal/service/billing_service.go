package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/repository"
	"github.com/rs/zerolog"
)

// SettlementPolicy decides when a payment settles its invoice.
type SettlementPolicy string

const (
	// SettleAnyPayment marks the invoice Paid on any recorded payment.
	SettleAnyPayment SettlementPolicy = "any_payment"
	// SettleCumulative marks the invoice Paid once the payments cover its amount.
	SettleCumulative SettlementPolicy = "cumulative"
)

func ParseSettlementPolicy(s string) (SettlementPolicy, error) {
	switch SettlementPolicy(s) {
	case "", SettleAnyPayment:
		return SettleAnyPayment, nil
	case SettleCumulative:
		return SettleCumulative, nil
	}
	return "", fmt.Errorf("unknown settlement policy %q", s)
}

func (p SettlementPolicy) settle(current string, invoiceAmount, totalPaid float64) string {
	switch p {
	case SettleCumulative:
		if cents(totalPaid) >= cents(invoiceAmount) {
			return models.InvoicePaid
		}
		return current
	default:
		return models.InvoicePaid
	}
}

// cents rounds an amount to whole cents so summed float payments compare
// the way NUMERIC(12,2) does.
func cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

const dateLayout = "2006-01-02"

type BillingService interface {
	CreateInvoice(ctx context.Context, req *models.CreateInvoiceRequest) (*models.Invoice, error)
	RecordPayment(ctx context.Context, req *models.RecordPaymentRequest) (*models.PaymentResult, error)
	ListInvoices(ctx context.Context) ([]models.InvoiceWithDetails, error)
	ListPayments(ctx context.Context) ([]models.PaymentWithDetails, error)
	MyInvoices(ctx context.Context, userID string) ([]models.InvoiceWithDetails, error)
	MyPayments(ctx context.Context, userID string) ([]models.PaymentWithDetails, error)
	UnpaidInvoices(ctx context.Context) ([]models.UnpaidInvoice, error)
	StudentInvoices(ctx context.Context, studentID string) ([]models.InvoiceWithDetails, error)
}

type billingService struct {
	tx           repository.Transactor
	invoiceRepo  repository.InvoiceRepository
	paymentRepo  repository.PaymentRepository
	appRepo      repository.ApplicationRepository
	studentRepo  repository.StudentRepository
	reminderRepo repository.ReminderRepository
	policy       SettlementPolicy
	logger       zerolog.Logger
}

func NewBillingService(
	tx repository.Transactor,
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	appRepo repository.ApplicationRepository,
	studentRepo repository.StudentRepository,
	reminderRepo repository.ReminderRepository,
	policy SettlementPolicy,
	logger zerolog.Logger,
) BillingService {
	if policy == "" {
		policy = SettleAnyPayment
	}
	return &billingService{
		tx:           tx,
		invoiceRepo:  invoiceRepo,
		paymentRepo:  paymentRepo,
		appRepo:      appRepo,
		studentRepo:  studentRepo,
		reminderRepo: reminderRepo,
		policy:       policy,
		logger:       logger,
	}
}

func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, validationf("%s must be a date in YYYY-MM-DD format", field)
	}
	return &t, nil
}

func (s *billingService) CreateInvoice(ctx context.Context, req *models.CreateInvoiceRequest) (*models.Invoice, error) {
	if req.ApplicationID == "" {
		return nil, validationf("application_id is required")
	}
	if req.Amount <= 0 {
		return nil, validationf("amount must be greater than zero")
	}
	dueDate, err := parseDate("due_date", req.DueDate)
	if err != nil {
		return nil, err
	}

	app, err := s.appRepo.GetByID(ctx, req.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	if app == nil {
		return nil, notFound("Application")
	}

	existing, err := s.invoiceRepo.GetByApplication(ctx, req.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing invoice: %w", err)
	}
	if existing != nil {
		return nil, &ConflictError{Message: "Invoice already exists for this application", ExistingID: existing.ID}
	}

	now := time.Now()
	invoice := &models.Invoice{
		ID:            uuid.New().String(),
		ApplicationID: req.ApplicationID,
		Amount:        req.Amount,
		Status:        models.InvoiceUnpaid,
		DueDate:       dueDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		if repository.IsUniqueViolation(err, "") {
			return nil, &ConflictError{Message: "Invoice already exists for this application"}
		}
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.logger.Info().
		Str("invoice_id", invoice.ID).
		Str("application_id", invoice.ApplicationID).
		Float64("amount", invoice.Amount).
		Msg("Invoice created")

	return invoice, nil
}

// RecordPayment stores the payment and settles the invoice in one
// transaction. Reminders for the invoice are cleared after commit.
func (s *billingService) RecordPayment(ctx context.Context, req *models.RecordPaymentRequest) (*models.PaymentResult, error) {
	if req.InvoiceID == "" {
		return nil, validationf("invoice_id is required")
	}
	if req.Amount <= 0 {
		return nil, validationf("amount must be greater than zero")
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		return nil, validationf("method is required")
	}
	paymentDate, err := parseDate("payment_date", req.PaymentDate)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	payment := &models.Payment{
		ID:          uuid.New().String(),
		InvoiceID:   req.InvoiceID,
		Amount:      req.Amount,
		Method:      method,
		PaymentDate: now,
		Notes:       req.Notes,
		CreatedAt:   now,
	}
	if paymentDate != nil {
		payment.PaymentDate = *paymentDate
	}

	result := &models.PaymentResult{Payment: payment}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		invoice, err := s.invoiceRepo.GetByIDForUpdate(ctx, req.InvoiceID)
		if err != nil {
			return fmt.Errorf("failed to get invoice: %w", err)
		}
		if invoice == nil {
			return notFound("Invoice")
		}

		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		total, err := s.paymentRepo.SumByInvoice(ctx, invoice.ID)
		if err != nil {
			return fmt.Errorf("failed to sum payments: %w", err)
		}

		status := s.policy.settle(invoice.Status, invoice.Amount, total)
		if status != invoice.Status {
			if err := s.invoiceRepo.UpdateStatus(ctx, invoice.ID, status); err != nil {
				return fmt.Errorf("failed to update invoice status: %w", err)
			}
		}

		result.InvoiceStatus = status
		result.TotalPaid = total
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("invoice_id", req.InvoiceID).
		Str("payment_id", payment.ID).
		Float64("amount", payment.Amount).
		Str("invoice_status", result.InvoiceStatus).
		Str("policy", string(s.policy)).
		Msg("Payment recorded")

	if result.InvoiceStatus == models.InvoicePaid {
		s.clearReminders(ctx, req.InvoiceID)
	}

	return result, nil
}

func (s *billingService) clearReminders(ctx context.Context, invoiceID string) {
	removed, err := s.reminderRepo.DeleteByInvoice(context.WithoutCancel(ctx), invoiceID)
	if err != nil {
		s.logger.Error().Err(err).Str("invoice_id", invoiceID).Msg("Failed to clear invoice reminders")
		return
	}
	if removed > 0 {
		s.logger.Info().Str("invoice_id", invoiceID).Int64("removed", removed).Msg("Invoice reminders cleared")
	}
}

func (s *billingService) ListInvoices(ctx context.Context) ([]models.InvoiceWithDetails, error) {
	invoices, err := s.invoiceRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoices: %w", err)
	}
	return invoices, nil
}

func (s *billingService) ListPayments(ctx context.Context) ([]models.PaymentWithDetails, error) {
	payments, err := s.paymentRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}
	return payments, nil
}

func (s *billingService) studentOf(ctx context.Context, userID string) (*models.Student, error) {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student profile: %w", err)
	}
	if student == nil {
		return nil, notFound("Student profile")
	}
	return student, nil
}

func (s *billingService) MyInvoices(ctx context.Context, userID string) ([]models.InvoiceWithDetails, error) {
	student, err := s.studentOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.StudentInvoices(ctx, student.ID)
}

func (s *billingService) MyPayments(ctx context.Context, userID string) ([]models.PaymentWithDetails, error) {
	student, err := s.studentOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.GetByStudent(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}
	return payments, nil
}

func (s *billingService) UnpaidInvoices(ctx context.Context) ([]models.UnpaidInvoice, error) {
	invoices, err := s.invoiceRepo.ListUnpaid(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get unpaid invoices: %w", err)
	}
	return invoices, nil
}

func (s *billingService) StudentInvoices(ctx context.Context, studentID string) ([]models.InvoiceWithDetails, error) {
	invoices, err := s.invoiceRepo.GetByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoices: %w", err)
	}
	return invoices, nil
}
