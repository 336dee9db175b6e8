package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/repository"
	"github.com/rs/zerolog"
)

type UniversityService interface {
	Create(ctx context.Context, req *models.UniversityRequest) (*models.University, error)
	Get(ctx context.Context, id string) (*models.University, error)
	List(ctx context.Context, activeOnly bool) ([]models.University, error)
	Update(ctx context.Context, id string, req *models.UniversityRequest) (*models.University, error)
	Delete(ctx context.Context, id string) error
}

type universityService struct {
	universityRepo repository.UniversityRepository
	onChange       func(ctx context.Context)
	logger         zerolog.Logger
}

// NewUniversityService builds the service. onChange, when set, runs after
// every successful write so cached public listings can be dropped.
func NewUniversityService(universityRepo repository.UniversityRepository, onChange func(ctx context.Context), logger zerolog.Logger) UniversityService {
	if onChange == nil {
		onChange = func(context.Context) {}
	}
	return &universityService{
		universityRepo: universityRepo,
		onChange:       onChange,
		logger:         logger,
	}
}

func (s *universityService) Create(ctx context.Context, req *models.UniversityRequest) (*models.University, error) {
	name := strings.TrimSpace(req.Name)
	country := strings.TrimSpace(req.Country)
	if name == "" || country == "" {
		return nil, validationf("name and country are required")
	}

	now := time.Now()
	university := &models.University{
		ID:               uuid.New().String(),
		Name:             name,
		Country:          country,
		Requirements:     req.Requirements,
		IELTSRequirement: req.IELTSRequirement,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.IsActive != nil {
		university.IsActive = *req.IsActive
	}

	if err := s.universityRepo.Create(ctx, university); err != nil {
		return nil, fmt.Errorf("failed to create university: %w", err)
	}

	s.logger.Info().Str("university_id", university.ID).Str("name", name).Msg("University created")
	s.onChange(ctx)
	return university, nil
}

func (s *universityService) Get(ctx context.Context, id string) (*models.University, error) {
	university, err := s.universityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get university: %w", err)
	}
	if university == nil {
		return nil, notFound("University")
	}
	return university, nil
}

func (s *universityService) List(ctx context.Context, activeOnly bool) ([]models.University, error) {
	universities, err := s.universityRepo.GetAll(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to get universities: %w", err)
	}
	return universities, nil
}

func (s *universityService) Update(ctx context.Context, id string, req *models.UniversityRequest) (*models.University, error) {
	university, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		university.Name = name
	}
	if country := strings.TrimSpace(req.Country); country != "" {
		university.Country = country
	}
	university.Requirements = req.Requirements
	if req.IELTSRequirement != nil {
		university.IELTSRequirement = req.IELTSRequirement
	}
	if req.IsActive != nil {
		university.IsActive = *req.IsActive
	}
	university.UpdatedAt = time.Now()

	if err := s.universityRepo.Update(ctx, university); err != nil {
		return nil, fmt.Errorf("failed to update university: %w", err)
	}

	s.onChange(ctx)
	return university, nil
}

func (s *universityService) Delete(ctx context.Context, id string) error {
	deleted, err := s.universityRepo.Delete(ctx, id)
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return &ConflictError{Message: "University is still referenced"}
		}
		return fmt.Errorf("failed to delete university: %w", err)
	}
	if !deleted {
		return notFound("University")
	}

	s.logger.Info().Str("university_id", id).Msg("University deleted")
	s.onChange(ctx)
	return nil
}
