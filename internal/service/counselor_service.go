package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/repository"
	"github.com/rs/zerolog"
)

type CounselorService interface {
	Assign(ctx context.Context, req *models.AssignCounselorRequest) (*models.CounselorAssignment, error)
	StudentsOf(ctx context.Context, counselorID string, includeInactive bool) ([]models.CounselorAssignmentWithDetails, error)
	CounselorOf(ctx context.Context, studentID string) (*models.CounselorAssignmentWithDetails, error)
	SetActive(ctx context.Context, id string, active bool) error
	ListCounselors(ctx context.Context) ([]models.CounselorWithLoad, error)
	ListAssignments(ctx context.Context, isActive *bool) ([]models.CounselorAssignmentWithDetails, error)
	DeleteAssignment(ctx context.Context, id string) error
}

type counselorService struct {
	tx            repository.Transactor
	counselorRepo repository.CounselorRepository
	userRepo      repository.UserRepository
	studentRepo   repository.StudentRepository
	logger        zerolog.Logger
}

func NewCounselorService(
	tx repository.Transactor,
	counselorRepo repository.CounselorRepository,
	userRepo repository.UserRepository,
	studentRepo repository.StudentRepository,
	logger zerolog.Logger,
) CounselorService {
	return &counselorService{
		tx:            tx,
		counselorRepo: counselorRepo,
		userRepo:      userRepo,
		studentRepo:   studentRepo,
		logger:        logger,
	}
}

// Assign replaces the student's active counselor. Older assignments are kept
// but deactivated.
func (s *counselorService) Assign(ctx context.Context, req *models.AssignCounselorRequest) (*models.CounselorAssignment, error) {
	if req.StudentID == "" || req.CounselorID == "" {
		return nil, validationf("Student ID and Counselor ID are required")
	}

	counselor, err := s.userRepo.GetByID(ctx, req.CounselorID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify counselor: %w", err)
	}
	if counselor == nil || counselor.Role != models.RoleCounselor {
		return nil, validationf("Invalid counselor ID or user is not a counselor")
	}

	student, err := s.studentRepo.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student == nil {
		return nil, notFound("Student")
	}

	assignment := &models.CounselorAssignment{
		ID:          uuid.New().String(),
		StudentID:   req.StudentID,
		CounselorID: req.CounselorID,
		IsActive:    true,
		AssignedAt:  time.Now(),
	}

	var deactivated int64
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		deactivated, err = s.counselorRepo.DeactivateForStudent(ctx, req.StudentID)
		if err != nil {
			return fmt.Errorf("failed to update existing assignments: %w", err)
		}
		if err := s.counselorRepo.Create(ctx, assignment); err != nil {
			return fmt.Errorf("failed to assign counselor: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("assignment_id", assignment.ID).
		Str("student_id", req.StudentID).
		Str("counselor_id", req.CounselorID).
		Int64("deactivated", deactivated).
		Msg("Counselor assigned")

	return assignment, nil
}

func (s *counselorService) StudentsOf(ctx context.Context, counselorID string, includeInactive bool) ([]models.CounselorAssignmentWithDetails, error) {
	students, err := s.counselorRepo.ListStudents(ctx, counselorID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to get counselor students: %w", err)
	}
	return students, nil
}

func (s *counselorService) CounselorOf(ctx context.Context, studentID string) (*models.CounselorAssignmentWithDetails, error) {
	assignment, err := s.counselorRepo.ActiveForStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student counselor: %w", err)
	}
	if assignment == nil {
		return nil, notFound("Counselor assignment")
	}
	return assignment, nil
}

func (s *counselorService) SetActive(ctx context.Context, id string, active bool) error {
	ok, err := s.counselorRepo.SetActive(ctx, id, active)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	if !ok {
		return notFound("Assignment")
	}
	return nil
}

func (s *counselorService) ListCounselors(ctx context.Context) ([]models.CounselorWithLoad, error) {
	counselors, err := s.counselorRepo.ListCounselors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get counselors: %w", err)
	}
	return counselors, nil
}

func (s *counselorService) ListAssignments(ctx context.Context, isActive *bool) ([]models.CounselorAssignmentWithDetails, error) {
	assignments, err := s.counselorRepo.List(ctx, isActive)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignments: %w", err)
	}
	return assignments, nil
}

func (s *counselorService) DeleteAssignment(ctx context.Context, id string) error {
	ok, err := s.counselorRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	if !ok {
		return notFound("Assignment")
	}
	return nil
}
