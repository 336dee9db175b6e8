package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/repository"
	"github.com/ilham-education/ilham-backend/internal/service/integration"
	"github.com/rs/zerolog"
)

type ReminderService interface {
	List(ctx context.Context) ([]models.ReminderWithStudent, error)
	Create(ctx context.Context, req *models.CreateReminderRequest) (*models.Reminder, error)
	Delete(ctx context.Context, id string) error
	Push(ctx context.Context, req *models.PushReminderRequest) (*models.Notification, error)
	// RemindDueInvoices creates a reminder and a notification for every
	// unpaid invoice due within the lead window, at most once per invoice a day.
	RemindDueInvoices(ctx context.Context, now time.Time) (int, error)
}

type reminderService struct {
	tx           repository.Transactor
	reminderRepo repository.ReminderRepository
	invoiceRepo  repository.InvoiceRepository
	studentRepo  repository.StudentRepository
	notifier     *notifier
	leadDays     int
	logger       zerolog.Logger
}

func NewReminderService(
	tx repository.Transactor,
	reminderRepo repository.ReminderRepository,
	invoiceRepo repository.InvoiceRepository,
	studentRepo repository.StudentRepository,
	notificationRepo repository.NotificationRepository,
	publisher integration.EventPublisher,
	leadDays int,
	logger zerolog.Logger,
) ReminderService {
	if leadDays < 0 {
		leadDays = 0
	}
	return &reminderService{
		tx:           tx,
		reminderRepo: reminderRepo,
		invoiceRepo:  invoiceRepo,
		studentRepo:  studentRepo,
		notifier:     newNotifier(notificationRepo, studentRepo, publisher, logger),
		leadDays:     leadDays,
		logger:       logger,
	}
}

func (s *reminderService) List(ctx context.Context) ([]models.ReminderWithStudent, error) {
	reminders, err := s.reminderRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get reminders: %w", err)
	}
	return reminders, nil
}

func (s *reminderService) Create(ctx context.Context, req *models.CreateReminderRequest) (*models.Reminder, error) {
	note := strings.TrimSpace(req.Note)
	if req.StudentID == "" || note == "" {
		return nil, validationf("Missing data")
	}

	date, err := parseDate("reminder_date", req.ReminderDate)
	if err != nil {
		return nil, err
	}

	student, err := s.studentRepo.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student == nil {
		return nil, notFound("Student")
	}

	now := time.Now()
	reminder := &models.Reminder{
		ID:           uuid.New().String(),
		StudentID:    req.StudentID,
		InvoiceID:    req.InvoiceID,
		Note:         note,
		ReminderDate: truncateDay(now),
		CreatedAt:    now,
	}
	if date != nil {
		reminder.ReminderDate = *date
	}

	if err := s.reminderRepo.Create(ctx, reminder); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, notFound("Invoice")
		}
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}
	return reminder, nil
}

func (s *reminderService) Delete(ctx context.Context, id string) error {
	ok, err := s.reminderRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	if !ok {
		return notFound("Reminder")
	}
	return nil
}

// Push sends the note to the student as a notification.
func (s *reminderService) Push(ctx context.Context, req *models.PushReminderRequest) (*models.Notification, error) {
	note := strings.TrimSpace(req.Note)
	if req.StudentID == "" || note == "" {
		return nil, validationf("Missing data")
	}

	student, err := s.studentRepo.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student == nil {
		return nil, notFound("Student")
	}

	notification, err := s.notifier.create(ctx, req.StudentID, note)
	if err != nil {
		return nil, fmt.Errorf("failed to push reminder: %w", err)
	}

	s.notifier.announce(ctx, notification)
	return notification, nil
}

func (s *reminderService) RemindDueInvoices(ctx context.Context, now time.Time) (int, error) {
	today := truncateDay(now)
	horizon := today.AddDate(0, 0, s.leadDays)

	invoices, err := s.invoiceRepo.ListDueBefore(ctx, horizon)
	if err != nil {
		return 0, fmt.Errorf("failed to list due invoices: %w", err)
	}

	created := 0
	for _, inv := range invoices {
		var notification *models.Notification

		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			exists, err := s.reminderRepo.ExistsForInvoiceOn(ctx, inv.InvoiceID, today)
			if err != nil {
				return fmt.Errorf("failed to check reminder: %w", err)
			}
			if exists {
				return nil
			}

			note := dueInvoiceNote(inv)
			reminder := &models.Reminder{
				ID:           uuid.New().String(),
				StudentID:    inv.StudentID,
				InvoiceID:    inv.InvoiceID,
				Note:         note,
				ReminderDate: today,
				CreatedAt:    now,
			}
			if err := s.reminderRepo.Create(ctx, reminder); err != nil {
				return fmt.Errorf("failed to create reminder: %w", err)
			}

			notification, err = s.notifier.create(ctx, inv.StudentID, note)
			if err != nil {
				return fmt.Errorf("failed to create notification: %w", err)
			}
			return nil
		})
		if err != nil {
			s.logger.Error().Err(err).Str("invoice_id", inv.InvoiceID).Msg("Failed to remind due invoice")
			continue
		}

		if notification != nil {
			created++
			s.notifier.announce(ctx, notification)
		}
	}

	s.logger.Info().
		Int("due_invoices", len(invoices)).
		Int("reminders_created", created).
		Msg("Due invoice reminders processed")

	return created, nil
}

func dueInvoiceNote(inv models.UnpaidInvoice) string {
	due := "soon"
	if inv.DueDate != nil {
		due = "on " + inv.DueDate.Format(dateLayout)
	}
	return fmt.Sprintf("Payment of %.2f for invoice #%s (%s) is due %s.", inv.Amount, inv.InvoiceID, inv.UniversityName, due)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
