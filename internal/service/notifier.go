package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/repository"
	"github.com/ilham-education/ilham-backend/internal/service/integration"
	"github.com/rs/zerolog"
)

// notifier creates notification rows and, once the surrounding transaction
// has committed, announces them on the event bus.
type notifier struct {
	notificationRepo repository.NotificationRepository
	studentRepo      repository.StudentRepository
	publisher        integration.EventPublisher
	logger           zerolog.Logger
}

func newNotifier(
	notificationRepo repository.NotificationRepository,
	studentRepo repository.StudentRepository,
	publisher integration.EventPublisher,
	logger zerolog.Logger,
) *notifier {
	return &notifier{
		notificationRepo: notificationRepo,
		studentRepo:      studentRepo,
		publisher:        publisher,
		logger:           logger,
	}
}

func (n *notifier) create(ctx context.Context, studentID, message string) (*models.Notification, error) {
	notification := &models.Notification{
		ID:        uuid.New().String(),
		StudentID: studentID,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := n.notificationRepo.Create(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

// announce is best-effort; failures are logged and never returned.
func (n *notifier) announce(ctx context.Context, notifications ...*models.Notification) {
	if n.publisher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	for _, notification := range notifications {
		if notification == nil {
			continue
		}

		student, err := n.studentRepo.GetByID(ctx, notification.StudentID)
		if err != nil || student == nil {
			n.logger.Warn().Err(err).
				Str("notification_id", notification.ID).
				Msg("Skipping notification event, student lookup failed")
			continue
		}

		event := &models.NotificationCreatedEvent{
			Type:           models.EventNotificationCreated,
			NotificationID: notification.ID,
			StudentID:      notification.StudentID,
			Email:          student.Email,
			Message:        notification.Message,
			Timestamp:      notification.CreatedAt.Unix(),
		}
		if err := n.publisher.Publish(ctx, models.EventNotificationCreated, event); err != nil {
			n.logger.Error().Err(err).
				Str("notification_id", notification.ID).
				Msg("Failed to publish notification event")
		}
	}
}
