package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilham-education/ilham-backend/internal/cache"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/repository"
	"github.com/rs/zerolog"
)

const (
	cacheKeyContent      = "cms:public:content"
	cacheKeyUniversities = "cms:public:universities"
	cacheKeyIELTS        = "cms:public:ielts"

	publicUniversityLimit = 6
	publicIELTSLimit      = 3
)

type ContentService interface {
	PublicContent(ctx context.Context) (map[string]string, error)
	PublicUniversities(ctx context.Context) ([]models.PublicUniversity, error)
	PublicIELTS(ctx context.Context) (*models.PublicIELTS, error)
	UpdateContent(ctx context.Context, updates map[string]string) error
	// Invalidate drops every cached public listing.
	Invalidate(ctx context.Context)
}

type contentService struct {
	tx             repository.Transactor
	contentRepo    repository.ContentRepository
	universityRepo repository.UniversityRepository
	cache          cache.Cache
	ttl            time.Duration
	logger         zerolog.Logger
}

func NewContentService(
	tx repository.Transactor,
	contentRepo repository.ContentRepository,
	universityRepo repository.UniversityRepository,
	c cache.Cache,
	ttl time.Duration,
	logger zerolog.Logger,
) ContentService {
	if c == nil {
		c = cache.NopCache{}
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &contentService{
		tx:             tx,
		contentRepo:    contentRepo,
		universityRepo: universityRepo,
		cache:          c,
		ttl:            ttl,
		logger:         logger,
	}
}

// cached serves key from the cache, falling back to load and storing its
// result. Cache failures are logged and never surface to the caller.
func cached[T any](ctx context.Context, s *contentService, key string, load func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := s.cache.GetJSON(ctx, key, &out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}

	out, err = load(ctx)
	if err != nil {
		return out, err
	}

	if err := s.cache.SetJSON(ctx, key, out, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
	return out, nil
}

func (s *contentService) PublicContent(ctx context.Context) (map[string]string, error) {
	return cached(ctx, s, cacheKeyContent, func(ctx context.Context) (map[string]string, error) {
		content, err := s.contentRepo.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch content: %w", err)
		}
		return content, nil
	})
}

func (s *contentService) PublicUniversities(ctx context.Context) ([]models.PublicUniversity, error) {
	return cached(ctx, s, cacheKeyUniversities, func(ctx context.Context) ([]models.PublicUniversity, error) {
		universities, err := s.universityRepo.ListPublic(ctx, publicUniversityLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch universities: %w", err)
		}
		return universities, nil
	})
}

func (s *contentService) PublicIELTS(ctx context.Context) (*models.PublicIELTS, error) {
	return cached(ctx, s, cacheKeyIELTS, func(ctx context.Context) (*models.PublicIELTS, error) {
		courses, err := s.contentRepo.ActiveCourses(ctx, publicIELTSLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch courses: %w", err)
		}
		materials, err := s.contentRepo.Materials(ctx, publicIELTSLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch materials: %w", err)
		}
		return &models.PublicIELTS{Courses: courses, Materials: materials}, nil
	})
}

func (s *contentService) UpdateContent(ctx context.Context, updates map[string]string) error {
	if len(updates) == 0 {
		return validationf("No updates provided")
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for key, value := range updates {
			key = strings.TrimSpace(key)
			if key == "" {
				return validationf("Content keys must not be empty")
			}
			if err := s.contentRepo.Upsert(ctx, key, value); err != nil {
				return fmt.Errorf("failed to update %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().Int("keys", len(updates)).Msg("Site content updated")
	s.Invalidate(ctx)
	return nil
}

func (s *contentService) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(context.WithoutCancel(ctx), cacheKeyContent, cacheKeyUniversities, cacheKeyIELTS); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to invalidate content cache")
	}
}
