package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/repository"
	"github.com/ilham-education/ilham-backend/internal/service/integration"
	"github.com/rs/zerolog"
)

type NotificationService interface {
	Create(ctx context.Context, req *models.CreateNotificationRequest) (*models.Notification, error)
	ListAll(ctx context.Context) ([]models.NotificationWithStudent, error)
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	UnreadCounts(ctx context.Context) ([]models.UnreadCount, error)

	ListMine(ctx context.Context, userID string) ([]models.Notification, error)
	MarkMineRead(ctx context.Context, userID, id string) error
	MarkAllMineRead(ctx context.Context, userID string) (int64, error)
}

type notificationService struct {
	notificationRepo repository.NotificationRepository
	studentRepo      repository.StudentRepository
	notifier         *notifier
	logger           zerolog.Logger
}

func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	studentRepo repository.StudentRepository,
	publisher integration.EventPublisher,
	logger zerolog.Logger,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		studentRepo:      studentRepo,
		notifier:         newNotifier(notificationRepo, studentRepo, publisher, logger),
		logger:           logger,
	}
}

func (s *notificationService) Create(ctx context.Context, req *models.CreateNotificationRequest) (*models.Notification, error) {
	message := strings.TrimSpace(req.Message)
	if req.StudentID == "" || message == "" {
		return nil, validationf("student_id and message are required")
	}

	student, err := s.studentRepo.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student == nil {
		return nil, notFound("Student")
	}

	notification, err := s.notifier.create(ctx, req.StudentID, message)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	s.notifier.announce(ctx, notification)
	return notification, nil
}

func (s *notificationService) ListAll(ctx context.Context) ([]models.NotificationWithStudent, error) {
	notifications, err := s.notificationRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	return notifications, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id string) error {
	ok, err := s.notificationRepo.MarkRead(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !ok {
		return notFound("Notification")
	}
	return nil
}

func (s *notificationService) Delete(ctx context.Context, id string) error {
	ok, err := s.notificationRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if !ok {
		return notFound("Notification")
	}
	return nil
}

func (s *notificationService) UnreadCounts(ctx context.Context) ([]models.UnreadCount, error) {
	counts, err := s.notificationRepo.UnreadCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get unread counts: %w", err)
	}
	return counts, nil
}

func (s *notificationService) ListMine(ctx context.Context, userID string) ([]models.Notification, error) {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student profile: %w", err)
	}
	if student == nil {
		return []models.Notification{}, nil
	}

	notifications, err := s.notificationRepo.GetByStudent(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	return notifications, nil
}

// MarkMineRead reports NotFound both for unknown ids and for notifications
// that belong to another student.
func (s *notificationService) MarkMineRead(ctx context.Context, userID, id string) error {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get student profile: %w", err)
	}
	if student == nil {
		return notFound("Student profile")
	}

	ok, err := s.notificationRepo.MarkReadForStudent(ctx, id, student.ID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !ok {
		return notFound("Notification")
	}
	return nil
}

func (s *notificationService) MarkAllMineRead(ctx context.Context, userID string) (int64, error) {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get student profile: %w", err)
	}
	if student == nil {
		return 0, notFound("Student profile")
	}

	n, err := s.notificationRepo.MarkAllRead(ctx, student.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}
