package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/repository"
	"github.com/ilham-education/ilham-backend/internal/service/storage"
	"github.com/ilham-education/ilham-backend/pkg/auth"
	"github.com/rs/zerolog"
)

// FileUpload is a file received from a multipart form.
type FileUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

type StudentService interface {
	Create(ctx context.Context, req *models.CreateStudentRequest) (*models.StudentDetail, error)
	List(ctx context.Context) ([]models.Student, error)
	Get(ctx context.Context, id string) (*models.StudentDetail, error)
	Update(ctx context.Context, id string, req *models.UpdateStudentRequest) (*models.StudentDetail, error)
	Delete(ctx context.Context, id string) error

	SaveProfile(ctx context.Context, userID string, req *models.StudentProfileRequest) (*models.Student, error)
	SaveGuardian(ctx context.Context, userID string, req *models.GuardianRequest) (*models.Guardian, error)
	Dashboard(ctx context.Context, userID string) (*models.StudentDashboard, error)

	UploadPhoto(ctx context.Context, studentID string, file FileUpload) (*models.Student, error)
}

type PhotoSettings struct {
	MaxSize      int64
	MaxDimension int
}

type studentService struct {
	tx          repository.Transactor
	userRepo    repository.UserRepository
	studentRepo repository.StudentRepository
	appRepo     repository.ApplicationRepository
	ieltsRepo   repository.IELTSRepository
	storage     storage.Storage
	photo       PhotoSettings
	logger      zerolog.Logger
}

func NewStudentService(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	studentRepo repository.StudentRepository,
	appRepo repository.ApplicationRepository,
	ieltsRepo repository.IELTSRepository,
	store storage.Storage,
	photo PhotoSettings,
	logger zerolog.Logger,
) StudentService {
	if photo.MaxSize <= 0 {
		photo.MaxSize = 5 << 20
	}
	if photo.MaxDimension <= 0 {
		photo.MaxDimension = 512
	}
	return &studentService{
		tx:          tx,
		userRepo:    userRepo,
		studentRepo: studentRepo,
		appRepo:     appRepo,
		ieltsRepo:   ieltsRepo,
		storage:     store,
		photo:       photo,
		logger:      logger,
	}
}

// Create adds a verified STUDENT account with its profile and optional
// guardian in one transaction.
func (s *studentService) Create(ctx context.Context, req *models.CreateStudentRequest) (*models.StudentDetail, error) {
	email := normalizeEmail(req.Email)
	if email == "" || strings.TrimSpace(req.FullName) == "" {
		return nil, validationf("email and full_name are required")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, validationf("Password must be at least 6 characters")
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleStudent,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	detail := &models.StudentDetail{
		Student: models.Student{
			ID:          uuid.New().String(),
			UserID:      user.ID,
			Email:       email,
			FullName:    strings.TrimSpace(req.FullName),
			Phone:       req.Phone,
			PassportNo:  req.PassportNo,
			Nationality: req.Nationality,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if existing != nil {
			return &ConflictError{Message: "Email already registered", ExistingID: existing.ID}
		}

		if err := s.userRepo.Create(ctx, user); err != nil {
			if repository.IsUniqueViolation(err, "") {
				return &ConflictError{Message: "Email already registered"}
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		if err := s.studentRepo.Create(ctx, &detail.Student); err != nil {
			return fmt.Errorf("failed to create student: %w", err)
		}

		if req.GuardianName != "" {
			detail.Guardian = &models.Guardian{
				ID:        uuid.New().String(),
				StudentID: detail.ID,
				Name:      req.GuardianName,
				Phone:     req.GuardianPhone,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.studentRepo.UpsertGuardian(ctx, detail.Guardian); err != nil {
				return fmt.Errorf("failed to create guardian: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("student_id", detail.ID).Str("email", email).Msg("Student created")
	return detail, nil
}

func (s *studentService) List(ctx context.Context) ([]models.Student, error) {
	students, err := s.studentRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get students: %w", err)
	}
	return students, nil
}

func (s *studentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student == nil {
		return nil, notFound("Student")
	}

	guardian, err := s.studentRepo.GetGuardian(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get guardian: %w", err)
	}

	return &models.StudentDetail{Student: *student, Guardian: guardian}, nil
}

func (s *studentService) Update(ctx context.Context, id string, req *models.UpdateStudentRequest) (*models.StudentDetail, error) {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		student, err := s.studentRepo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get student: %w", err)
		}
		if student == nil {
			return notFound("Student")
		}

		if req.FullName != nil {
			student.FullName = strings.TrimSpace(*req.FullName)
		}
		if req.Phone != nil {
			student.Phone = *req.Phone
		}
		if req.PassportNo != nil {
			student.PassportNo = *req.PassportNo
		}
		if req.Nationality != nil {
			student.Nationality = *req.Nationality
		}
		if req.Address != nil {
			student.Address = *req.Address
		}
		if req.DOB != nil {
			dob, err := parseDate("dob", *req.DOB)
			if err != nil {
				return err
			}
			student.DOB = dob
		}
		student.UpdatedAt = time.Now()

		if err := s.studentRepo.Update(ctx, student); err != nil {
			return fmt.Errorf("failed to update student: %w", err)
		}

		if req.GuardianName == nil && req.GuardianPhone == nil {
			return nil
		}

		guardian, err := s.studentRepo.GetGuardian(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get guardian: %w", err)
		}
		if guardian == nil {
			guardian = &models.Guardian{ID: uuid.New().String(), StudentID: id, CreatedAt: student.UpdatedAt}
		}
		if req.GuardianName != nil {
			guardian.Name = *req.GuardianName
		}
		if req.GuardianPhone != nil {
			guardian.Phone = *req.GuardianPhone
		}
		if guardian.Name == "" {
			return validationf("guardian_name is required")
		}
		guardian.UpdatedAt = student.UpdatedAt

		if err := s.studentRepo.UpsertGuardian(ctx, guardian); err != nil {
			return fmt.Errorf("failed to save guardian: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes the student's user account; the profile and everything that
// hangs off it go with it.
func (s *studentService) Delete(ctx context.Context, id string) error {
	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get student: %w", err)
	}
	if student == nil {
		return notFound("Student")
	}

	if err := s.userRepo.Delete(ctx, student.UserID); err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}

	s.logger.Info().Str("student_id", id).Str("user_id", student.UserID).Msg("Student deleted")
	return nil
}

// SaveProfile creates the caller's student profile or updates it in place.
func (s *studentService) SaveProfile(ctx context.Context, userID string, req *models.StudentProfileRequest) (*models.Student, error) {
	if strings.TrimSpace(req.FullName) == "" {
		return nil, validationf("full_name is required")
	}
	dob, err := parseDate("dob", req.DOB)
	if err != nil {
		return nil, err
	}

	var student *models.Student
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		student, err = s.studentRepo.GetByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get student profile: %w", err)
		}

		now := time.Now()
		isNew := student == nil
		if isNew {
			student = &models.Student{
				ID:        uuid.New().String(),
				UserID:    userID,
				CreatedAt: now,
			}
		}

		student.FullName = strings.TrimSpace(req.FullName)
		student.Phone = req.Phone
		student.PassportNo = req.PassportNo
		student.Nationality = req.Nationality
		student.Address = req.Address
		student.DOB = dob
		student.UpdatedAt = now

		if isNew {
			if err := s.studentRepo.Create(ctx, student); err != nil {
				return fmt.Errorf("failed to create student profile: %w", err)
			}
			return nil
		}
		if err := s.studentRepo.Update(ctx, student); err != nil {
			return fmt.Errorf("failed to update student profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return student, nil
}

func (s *studentService) SaveGuardian(ctx context.Context, userID string, req *models.GuardianRequest) (*models.Guardian, error) {
	if strings.TrimSpace(req.GuardianName) == "" {
		return nil, validationf("guardian_name is required")
	}

	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student profile: %w", err)
	}
	if student == nil {
		return nil, notFound("Student profile")
	}

	now := time.Now()
	guardian, err := s.studentRepo.GetGuardian(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guardian: %w", err)
	}
	if guardian == nil {
		guardian = &models.Guardian{ID: uuid.New().String(), StudentID: student.ID, CreatedAt: now}
	}
	guardian.Name = strings.TrimSpace(req.GuardianName)
	guardian.Relationship = req.Relationship
	guardian.Phone = req.Phone
	guardian.Email = req.Email
	guardian.Address = req.Address
	guardian.UpdatedAt = now

	if err := s.studentRepo.UpsertGuardian(ctx, guardian); err != nil {
		return nil, fmt.Errorf("failed to save guardian: %w", err)
	}
	return guardian, nil
}

// Dashboard gathers the student's profile, application counts, IELTS
// readiness and upcoming mock tests.
func (s *studentService) Dashboard(ctx context.Context, userID string) (*models.StudentDashboard, error) {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student profile: %w", err)
	}
	if student == nil {
		return nil, notFound("Student profile")
	}

	guardian, err := s.studentRepo.GetGuardian(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guardian: %w", err)
	}

	counts, err := s.appRepo.CountByStatus(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}

	avg, taken, err := s.ieltsRepo.AverageOverall(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ielts average: %w", err)
	}

	upcoming, err := s.ieltsRepo.UpcomingMockTests(ctx, student.ID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming mock tests: %w", err)
	}

	totalMocks, err := s.ieltsRepo.CountMockTests(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count mock tests: %w", err)
	}

	dashboard := &models.StudentDashboard{
		Profile: &models.StudentDetail{Student: *student, Guardian: guardian},
		Applications: models.ApplicationCounts{
			Applied:  counts[models.StatusApplied],
			Approved: counts[models.StatusApproved],
			Rejected: counts[models.StatusRejected],
		},
		IELTS:          readiness(avg, taken),
		UpcomingMocks:  upcoming,
		TotalMockTests: totalMocks,
	}
	dashboard.Applications.Total = dashboard.Applications.Applied +
		dashboard.Applications.Approved + dashboard.Applications.Rejected

	return dashboard, nil
}

func (s *studentService) UploadPhoto(ctx context.Context, studentID string, file FileUpload) (*models.Student, error) {
	if file.Content == nil {
		return nil, validationf("No photo uploaded")
	}
	if !photoContentTypes[strings.ToLower(file.ContentType)] {
		return nil, validationf("Only JPEG, PNG and WEBP images are allowed")
	}
	if file.Size > s.photo.MaxSize {
		return nil, validationf("Photo must not exceed %d MB", s.photo.MaxSize>>20)
	}

	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student == nil {
		return nil, notFound("Student")
	}

	data, err := normalizePhoto(io.LimitReader(file.Content, s.photo.MaxSize+1), s.photo.MaxDimension)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("photos/%s-%s.jpg", studentID, uuid.New().String())
	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "image/jpeg"); err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	url := s.storage.GetURL(key)
	if err := s.studentRepo.UpdatePhoto(ctx, studentID, url); err != nil {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.Warn().Err(delErr).Str("key", key).Msg("Failed to remove orphaned photo")
		}
		return nil, fmt.Errorf("failed to update student photo: %w", err)
	}

	student.PhotoURL = url
	s.logger.Info().Str("student_id", studentID).Str("key", key).Msg("Student photo updated")
	return student, nil
}

func readiness(avg float64, taken int) models.Readiness {
	r := models.Readiness{
		Average:     math.Round(avg*10) / 10,
		TestsTaken:  taken,
		Status:      "Not Eligible",
		TargetScore: models.EligibleBand,
	}
	if taken > 0 && r.Average >= models.EligibleBand {
		r.Status = "Eligible"
	}
	return r
}
