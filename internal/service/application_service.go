package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/repository"
	"github.com/ilham-education/ilham-backend/internal/service/integration"
	"github.com/rs/zerolog"
)

type ApplicationService interface {
	Apply(ctx context.Context, studentID, universityID string) (*models.Application, error)
	ApplyAsStudent(ctx context.Context, userID, universityID string) (*models.Application, error)
	SetStatus(ctx context.Context, id string, status models.ApplicationStatus, remark, actorID string) (*models.Application, error)
	Update(ctx context.Context, id string, req *models.UpdateApplicationRequest, actorID string) (*models.Application, error)
	ListAll(ctx context.Context) ([]models.ApplicationWithDetails, error)
	ListForStudentUser(ctx context.Context, userID string) ([]models.ApplicationWithDetails, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.ApplicationWithDetails, error)
	// History lists status changes oldest first. A non-empty ownerUserID
	// restricts access to the student who owns the application.
	History(ctx context.Context, id, ownerUserID string) ([]models.ApplicationHistory, error)
	Summary(ctx context.Context, studentID string) ([]models.ApplicationSummary, error)
}

type applicationService struct {
	tx             repository.Transactor
	appRepo        repository.ApplicationRepository
	historyRepo    repository.HistoryRepository
	studentRepo    repository.StudentRepository
	universityRepo repository.UniversityRepository
	notifier       *notifier
	logger         zerolog.Logger
}

func NewApplicationService(
	tx repository.Transactor,
	appRepo repository.ApplicationRepository,
	historyRepo repository.HistoryRepository,
	studentRepo repository.StudentRepository,
	universityRepo repository.UniversityRepository,
	notificationRepo repository.NotificationRepository,
	publisher integration.EventPublisher,
	logger zerolog.Logger,
) ApplicationService {
	return &applicationService{
		tx:             tx,
		appRepo:        appRepo,
		historyRepo:    historyRepo,
		studentRepo:    studentRepo,
		universityRepo: universityRepo,
		notifier:       newNotifier(notificationRepo, studentRepo, publisher, logger),
		logger:         logger,
	}
}

// Apply creates an Applied application for the pair. A previous Rejected
// application is replaced; an Applied or Approved one blocks the request.
func (s *applicationService) Apply(ctx context.Context, studentID, universityID string) (*models.Application, error) {
	if studentID == "" || universityID == "" {
		return nil, validationf("student_id and university_id are required")
	}

	var app *models.Application
	var replaced int64

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		student, err := s.studentRepo.GetByID(ctx, studentID)
		if err != nil {
			return fmt.Errorf("failed to get student: %w", err)
		}
		if student == nil {
			return notFound("Student")
		}

		university, err := s.universityRepo.GetByID(ctx, universityID)
		if err != nil {
			return fmt.Errorf("failed to get university: %w", err)
		}
		if university == nil {
			return notFound("University")
		}

		existing, err := s.appRepo.LockPair(ctx, studentID, universityID)
		if err != nil {
			return fmt.Errorf("failed to check existing applications: %w", err)
		}
		for _, e := range existing {
			if e.Status != models.StatusRejected {
				return &DuplicateApplicationError{Status: e.Status}
			}
		}

		if len(existing) > 0 {
			replaced, err = s.appRepo.DeleteRejected(ctx, studentID, universityID)
			if err != nil {
				return fmt.Errorf("failed to remove rejected application: %w", err)
			}
		}

		now := time.Now()
		app = &models.Application{
			ID:           uuid.New().String(),
			StudentID:    studentID,
			UniversityID: universityID,
			Status:       models.StatusApplied,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := s.appRepo.Create(ctx, app); err != nil {
			if repository.IsUniqueViolation(err, repository.ActivePairIndex) {
				return &DuplicateApplicationError{Status: models.StatusApplied}
			}
			return fmt.Errorf("failed to create application: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("application_id", app.ID).
		Str("student_id", studentID).
		Str("university_id", universityID).
		Int64("replaced_rejected", replaced).
		Msg("Application submitted")

	return app, nil
}

func (s *applicationService) ApplyAsStudent(ctx context.Context, userID, universityID string) (*models.Application, error) {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student profile: %w", err)
	}
	if student == nil {
		return nil, notFound("Student profile")
	}

	return s.Apply(ctx, student.ID, universityID)
}

// SetStatus moves an application to status. A change of status appends one
// history row stamped with actorID; a change to Rejected also notifies the
// student. Everything happens in one transaction.
func (s *applicationService) SetStatus(ctx context.Context, id string, status models.ApplicationStatus, remark, actorID string) (*models.Application, error) {
	if !status.IsValid() {
		return nil, validationf("Invalid status. Must be Applied, Approved, or Rejected")
	}

	var app *models.Application
	var notification *models.Notification

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		app, notification, err = s.changeStatus(ctx, id, status, remark, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("application_id", id).
		Str("status", string(status)).
		Str("actor_id", actorID).
		Msg("Application status updated")

	s.notifier.announce(ctx, notification)

	return app, nil
}

// changeStatus must run inside a transaction. The returned notification is
// nil unless the application was rejected; the caller announces it once the
// transaction has committed.
func (s *applicationService) changeStatus(ctx context.Context, id string, status models.ApplicationStatus, remark, actorID string) (*models.Application, *models.Notification, error) {
	app, err := s.appRepo.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get application: %w", err)
	}
	if app == nil {
		return nil, nil, notFound("Application")
	}

	oldStatus := app.Status
	if err := s.appRepo.UpdateStatus(ctx, id, status, remark); err != nil {
		if repository.IsUniqueViolation(err, repository.ActivePairIndex) {
			return nil, nil, &DuplicateApplicationError{Status: status}
		}
		return nil, nil, fmt.Errorf("failed to update application status: %w", err)
	}

	now := time.Now()
	app.Status = status
	app.CounselorRemark = remark
	app.UpdatedAt = now

	if oldStatus == status {
		return app, nil, nil
	}

	entry := &models.ApplicationHistory{
		ID:            uuid.New().String(),
		ApplicationID: id,
		OldStatus:     oldStatus,
		NewStatus:     status,
		Remark:        remark,
		ChangedBy:     actorID,
		ChangedAt:     now,
	}
	if err := s.historyRepo.Create(ctx, entry); err != nil {
		return nil, nil, fmt.Errorf("failed to record status history: %w", err)
	}

	if status != models.StatusRejected {
		return app, nil, nil
	}

	university, err := s.universityRepo.GetByID(ctx, app.UniversityID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get university: %w", err)
	}
	universityName := "the university"
	if university != nil {
		universityName = university.Name
	}

	notification, err := s.notifier.create(ctx, app.StudentID, rejectionMessage(universityName, remark))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create rejection notification: %w", err)
	}

	return app, notification, nil
}

func rejectionMessage(universityName, remark string) string {
	msg := fmt.Sprintf("Your application to %s has been rejected.", universityName)
	if remark != "" {
		msg += " Remark: " + remark
	}
	return msg
}

// Update is the admin edit of an application. Both changes commit together
// or not at all; a move to Rejected is applied before the university change
// so the pair index never sees two active rows.
func (s *applicationService) Update(ctx context.Context, id string, req *models.UpdateApplicationRequest, actorID string) (*models.Application, error) {
	if req.UniversityID == nil && req.Status == nil {
		return nil, validationf("At least one field is required")
	}

	var status models.ApplicationStatus
	if req.Status != nil {
		status = models.ApplicationStatus(*req.Status)
		if !status.IsValid() {
			return nil, validationf("Invalid status. Must be one of: Applied, Approved, Rejected")
		}
	}
	moving := req.UniversityID != nil && *req.UniversityID != ""

	var app *models.Application
	var notification *models.Notification

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		pending := status
		if pending == models.StatusRejected {
			if err := s.updateStatus(ctx, id, pending, req.Remark, actorID, &notification); err != nil {
				return err
			}
			pending = ""
		}

		if moving {
			if err := s.moveUniversity(ctx, id, *req.UniversityID, pending); err != nil {
				return err
			}
		}

		if pending != "" {
			if err := s.updateStatus(ctx, id, pending, req.Remark, actorID, &notification); err != nil {
				return err
			}
		}

		var err error
		app, err = s.appRepo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get application: %w", err)
		}
		if app == nil {
			return notFound("Application")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("application_id", id).
		Str("status", string(app.Status)).
		Str("university_id", app.UniversityID).
		Str("actor_id", actorID).
		Msg("Application updated")

	s.notifier.announce(ctx, notification)

	return app, nil
}

// updateStatus keeps the stored remark unless a new one is given.
func (s *applicationService) updateStatus(ctx context.Context, id string, status models.ApplicationStatus, remark *string, actorID string, notification **models.Notification) error {
	current, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get application: %w", err)
	}
	if current == nil {
		return notFound("Application")
	}
	next := current.CounselorRemark
	if remark != nil {
		next = *remark
	}
	_, n, err := s.changeStatus(ctx, id, status, next, actorID)
	if err != nil {
		return err
	}
	if n != nil {
		*notification = n
	}
	return nil
}

func (s *applicationService) moveUniversity(ctx context.Context, id, universityID string, status models.ApplicationStatus) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		app, err := s.appRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get application: %w", err)
		}
		if app == nil {
			return notFound("Application")
		}
		if app.UniversityID == universityID {
			return nil
		}

		university, err := s.universityRepo.GetByID(ctx, universityID)
		if err != nil {
			return fmt.Errorf("failed to get university: %w", err)
		}
		if university == nil {
			return notFound("University")
		}

		finalStatus := app.Status
		if status != "" {
			finalStatus = status
		}
		if finalStatus != models.StatusRejected {
			others, err := s.appRepo.LockPair(ctx, app.StudentID, universityID)
			if err != nil {
				return fmt.Errorf("failed to check existing applications: %w", err)
			}
			for _, o := range others {
				if o.Status != models.StatusRejected {
					return &DuplicateApplicationError{Status: o.Status}
				}
			}
		}

		if err := s.appRepo.UpdateUniversity(ctx, id, universityID); err != nil {
			if repository.IsUniqueViolation(err, repository.ActivePairIndex) {
				return &DuplicateApplicationError{Status: finalStatus}
			}
			return fmt.Errorf("failed to update application: %w", err)
		}
		return nil
	})
}

func (s *applicationService) ListAll(ctx context.Context) ([]models.ApplicationWithDetails, error) {
	apps, err := s.appRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applications: %w", err)
	}
	return apps, nil
}

func (s *applicationService) ListForStudentUser(ctx context.Context, userID string) ([]models.ApplicationWithDetails, error) {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student profile: %w", err)
	}
	if student == nil {
		return []models.ApplicationWithDetails{}, nil
	}
	return s.ListByStudent(ctx, student.ID)
}

func (s *applicationService) ListByStudent(ctx context.Context, studentID string) ([]models.ApplicationWithDetails, error) {
	apps, err := s.appRepo.GetByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student applications: %w", err)
	}
	return apps, nil
}

func (s *applicationService) History(ctx context.Context, id, ownerUserID string) ([]models.ApplicationHistory, error) {
	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	if app == nil {
		return nil, notFound("Application")
	}

	if ownerUserID != "" {
		student, err := s.studentRepo.GetByUserID(ctx, ownerUserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get student profile: %w", err)
		}
		if student == nil || student.ID != app.StudentID {
			return nil, forbidden("You can only view the history of your own applications")
		}
	}

	history, err := s.historyRepo.ListByApplication(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get application history: %w", err)
	}
	return history, nil
}

func (s *applicationService) Summary(ctx context.Context, studentID string) ([]models.ApplicationSummary, error) {
	summary, err := s.appRepo.Summary(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get application summary: %w", err)
	}
	return summary, nil
}
