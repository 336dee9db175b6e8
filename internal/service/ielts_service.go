package service

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/repository"
	"github.com/ilham-education/ilham-backend/internal/service/storage"
	"github.com/rs/zerolog"
)

type IELTSService interface {
	ListCourses(ctx context.Context, activeOnly bool) ([]models.IELTSCourse, error)
	CreateCourse(ctx context.Context, req *models.CourseRequest) (*models.IELTSCourse, error)
	UpdateCourse(ctx context.Context, id string, req *models.CourseRequest) (*models.IELTSCourse, error)
	DeleteCourse(ctx context.Context, id string) error
	Enroll(ctx context.Context, userID, courseID string) error
	MyCourses(ctx context.Context, userID string) ([]models.IELTSCourse, error)

	CreateMockTest(ctx context.Context, req *models.MockTestRequest) (*models.MockTest, error)
	MockTests(ctx context.Context, courseID string) ([]models.MockTest, error)
	RecordResult(ctx context.Context, req *models.ResultRequest) (*models.IELTSResult, error)
	MyResults(ctx context.Context, userID string) ([]models.IELTSResult, error)
	StudentResults(ctx context.Context, studentID string) ([]models.IELTSResult, error)
	Readiness(ctx context.Context, userID string) (*models.Readiness, error)

	ListMaterials(ctx context.Context, freeOnly bool) ([]models.Material, error)
	CreateMaterial(ctx context.Context, req *models.MaterialRequest, file *FileUpload) (*models.Material, error)
	UpdateMaterial(ctx context.Context, id string, req *models.MaterialRequest, file *FileUpload) (*models.Material, error)
	DeleteMaterial(ctx context.Context, id string) error
}

type ieltsService struct {
	ieltsRepo       repository.IELTSRepository
	materialRepo    repository.MaterialRepository
	studentRepo     repository.StudentRepository
	storage         storage.Storage
	maxMaterialSize int64
	onChange        func(ctx context.Context)
	logger          zerolog.Logger
}

func NewIELTSService(
	ieltsRepo repository.IELTSRepository,
	materialRepo repository.MaterialRepository,
	studentRepo repository.StudentRepository,
	store storage.Storage,
	maxMaterialSize int64,
	onChange func(ctx context.Context),
	logger zerolog.Logger,
) IELTSService {
	if maxMaterialSize <= 0 {
		maxMaterialSize = 50 << 20
	}
	if onChange == nil {
		onChange = func(context.Context) {}
	}
	return &ieltsService{
		ieltsRepo:       ieltsRepo,
		materialRepo:    materialRepo,
		studentRepo:     studentRepo,
		storage:         store,
		maxMaterialSize: maxMaterialSize,
		onChange:        onChange,
		logger:          logger,
	}
}

func (s *ieltsService) studentOf(ctx context.Context, userID string) (*models.Student, error) {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student profile: %w", err)
	}
	if student == nil {
		return nil, notFound("Student profile")
	}
	return student, nil
}

func (s *ieltsService) ListCourses(ctx context.Context, activeOnly bool) ([]models.IELTSCourse, error) {
	courses, err := s.ieltsRepo.ListCourses(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to get courses: %w", err)
	}
	return courses, nil
}

func applyCourse(course *models.IELTSCourse, req *models.CourseRequest) error {
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return err
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return err
	}
	if start != nil && end != nil && end.Before(*start) {
		return validationf("end_date must not be before start_date")
	}

	if name := strings.TrimSpace(req.BatchName); name != "" {
		course.BatchName = name
	}
	course.Instructor = req.Instructor
	course.StartDate = start
	course.EndDate = end
	course.Description = req.Description
	course.Duration = req.Duration
	course.Schedule = req.Schedule
	course.Price = req.Price
	if req.Status != "" {
		course.Status = req.Status
	}
	return nil
}

func (s *ieltsService) CreateCourse(ctx context.Context, req *models.CourseRequest) (*models.IELTSCourse, error) {
	if strings.TrimSpace(req.BatchName) == "" {
		return nil, validationf("batch_name is required")
	}

	course := &models.IELTSCourse{
		ID:        uuid.New().String(),
		Status:    models.CourseActive,
		CreatedAt: time.Now(),
	}
	if err := applyCourse(course, req); err != nil {
		return nil, err
	}

	if err := s.ieltsRepo.CreateCourse(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.logger.Info().Str("course_id", course.ID).Str("batch", course.BatchName).Msg("IELTS course created")
	s.onChange(ctx)
	return course, nil
}

func (s *ieltsService) UpdateCourse(ctx context.Context, id string, req *models.CourseRequest) (*models.IELTSCourse, error) {
	course, err := s.ieltsRepo.GetCourse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course == nil {
		return nil, notFound("Course")
	}

	if err := applyCourse(course, req); err != nil {
		return nil, err
	}

	if err := s.ieltsRepo.UpdateCourse(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}

	s.onChange(ctx)
	return course, nil
}

func (s *ieltsService) DeleteCourse(ctx context.Context, id string) error {
	ok, err := s.ieltsRepo.DeleteCourse(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	if !ok {
		return notFound("Course")
	}
	s.onChange(ctx)
	return nil
}

// Enroll is idempotent; enrolling twice in the same course is not an error.
func (s *ieltsService) Enroll(ctx context.Context, userID, courseID string) error {
	student, err := s.studentOf(ctx, userID)
	if err != nil {
		return err
	}

	course, err := s.ieltsRepo.GetCourse(ctx, courseID)
	if err != nil {
		return fmt.Errorf("failed to get course: %w", err)
	}
	if course == nil {
		return notFound("Course")
	}
	if course.Status != models.CourseActive {
		return validationf("Course is not open for enrollment")
	}

	if err := s.ieltsRepo.Enroll(ctx, uuid.New().String(), student.ID, courseID); err != nil {
		return fmt.Errorf("failed to enroll: %w", err)
	}

	s.logger.Info().Str("student_id", student.ID).Str("course_id", courseID).Msg("Student enrolled")
	return nil
}

func (s *ieltsService) MyCourses(ctx context.Context, userID string) ([]models.IELTSCourse, error) {
	student, err := s.studentOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	courses, err := s.ieltsRepo.CoursesOfStudent(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get courses: %w", err)
	}
	return courses, nil
}

func (s *ieltsService) CreateMockTest(ctx context.Context, req *models.MockTestRequest) (*models.MockTest, error) {
	if req.CourseID == "" || strings.TrimSpace(req.TestName) == "" {
		return nil, validationf("course_id and test_name are required")
	}
	date, err := parseDate("test_date", req.TestDate)
	if err != nil {
		return nil, err
	}
	if date == nil {
		return nil, validationf("test_date is required")
	}

	course, err := s.ieltsRepo.GetCourse(ctx, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course == nil {
		return nil, notFound("Course")
	}

	mock := &models.MockTest{
		ID:        uuid.New().String(),
		CourseID:  req.CourseID,
		TestName:  strings.TrimSpace(req.TestName),
		TestDate:  *date,
		CreatedAt: time.Now(),
	}
	if err := s.ieltsRepo.CreateMockTest(ctx, mock); err != nil {
		return nil, fmt.Errorf("failed to create mock test: %w", err)
	}
	return mock, nil
}

func (s *ieltsService) MockTests(ctx context.Context, courseID string) ([]models.MockTest, error) {
	mocks, err := s.ieltsRepo.ListMockTests(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mock tests: %w", err)
	}
	return mocks, nil
}

// overallBand averages the four bands and rounds to the nearest half band.
func overallBand(listening, reading, writing, speaking float64) float64 {
	avg := (listening + reading + writing + speaking) / 4
	return math.Round(avg*2) / 2
}

func (s *ieltsService) RecordResult(ctx context.Context, req *models.ResultRequest) (*models.IELTSResult, error) {
	if req.StudentID == "" {
		return nil, validationf("student_id is required")
	}
	for name, band := range map[string]float64{
		"listening": req.Listening,
		"reading":   req.Reading,
		"writing":   req.Writing,
		"speaking":  req.Speaking,
		"overall":   req.Overall,
	} {
		if band < 0 || band > 9 {
			return nil, validationf("%s must be between 0 and 9", name)
		}
	}

	student, err := s.studentRepo.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student == nil {
		return nil, notFound("Student")
	}

	result := &models.IELTSResult{
		ID:         uuid.New().String(),
		MockTestID: req.MockTestID,
		StudentID:  req.StudentID,
		Listening:  req.Listening,
		Reading:    req.Reading,
		Writing:    req.Writing,
		Speaking:   req.Speaking,
		Overall:    req.Overall,
		DateTaken:  time.Now(),
	}
	if result.Overall == 0 {
		result.Overall = overallBand(req.Listening, req.Reading, req.Writing, req.Speaking)
	}

	if err := s.ieltsRepo.CreateResult(ctx, result); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, notFound("Mock test")
		}
		return nil, fmt.Errorf("failed to save result: %w", err)
	}
	return result, nil
}

func (s *ieltsService) MyResults(ctx context.Context, userID string) ([]models.IELTSResult, error) {
	student, err := s.studentOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.StudentResults(ctx, student.ID)
}

func (s *ieltsService) StudentResults(ctx context.Context, studentID string) ([]models.IELTSResult, error) {
	results, err := s.ieltsRepo.ResultsOfStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}
	return results, nil
}

func (s *ieltsService) Readiness(ctx context.Context, userID string) (*models.Readiness, error) {
	student, err := s.studentOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	avg, taken, err := s.ieltsRepo.AverageOverall(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ielts average: %w", err)
	}
	r := readiness(avg, taken)
	return &r, nil
}

func (s *ieltsService) ListMaterials(ctx context.Context, freeOnly bool) ([]models.Material, error) {
	materials, err := s.materialRepo.List(ctx, freeOnly, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get materials: %w", err)
	}
	return materials, nil
}

// storeMaterial uploads an attached file and returns its public URL.
func (s *ieltsService) storeMaterial(ctx context.Context, file *FileUpload) (string, error) {
	if file.Size > s.maxMaterialSize {
		return "", validationf("File must not exceed %d MB", s.maxMaterialSize>>20)
	}
	key := fmt.Sprintf("materials/%s%s", uuid.New().String(), strings.ToLower(filepath.Ext(file.FileName)))
	if err := s.storage.Upload(ctx, key, file.Content, file.Size, file.ContentType); err != nil {
		return "", fmt.Errorf("failed to store material: %w", err)
	}
	return s.storage.GetURL(key), nil
}

func (s *ieltsService) CreateMaterial(ctx context.Context, req *models.MaterialRequest, file *FileUpload) (*models.Material, error) {
	material := &models.Material{
		ID:           uuid.New().String(),
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		MaterialType: strings.TrimSpace(req.MaterialType),
		FileURL:      req.FileURL,
		CourseID:     req.CourseID,
		IsFree:       req.IsFree,
		CreatedAt:    time.Now(),
	}

	if file != nil {
		url, err := s.storeMaterial(ctx, file)
		if err != nil {
			return nil, err
		}
		material.FileURL = url
	}

	if material.Title == "" || material.MaterialType == "" || material.FileURL == "" {
		return nil, validationf("Missing required fields (Title, Type, and File/URL)")
	}

	if err := s.materialRepo.Create(ctx, material); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, notFound("Course")
		}
		return nil, fmt.Errorf("failed to create material: %w", err)
	}

	s.logger.Info().Str("material_id", material.ID).Str("title", material.Title).Msg("Material created")
	s.onChange(ctx)
	return material, nil
}

func (s *ieltsService) UpdateMaterial(ctx context.Context, id string, req *models.MaterialRequest, file *FileUpload) (*models.Material, error) {
	material, err := s.materialRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get material: %w", err)
	}
	if material == nil {
		return nil, notFound("Material")
	}

	if title := strings.TrimSpace(req.Title); title != "" {
		material.Title = title
	}
	if t := strings.TrimSpace(req.MaterialType); t != "" {
		material.MaterialType = t
	}
	material.Description = req.Description
	material.IsFree = req.IsFree
	if req.CourseID != "" {
		material.CourseID = req.CourseID
	}
	if req.FileURL != "" {
		material.FileURL = req.FileURL
	}
	if file != nil {
		url, err := s.storeMaterial(ctx, file)
		if err != nil {
			return nil, err
		}
		material.FileURL = url
	}

	if err := s.materialRepo.Update(ctx, material); err != nil {
		return nil, fmt.Errorf("failed to update material: %w", err)
	}

	s.onChange(ctx)
	return material, nil
}

func (s *ieltsService) DeleteMaterial(ctx context.Context, id string) error {
	ok, err := s.materialRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete material: %w", err)
	}
	if !ok {
		return notFound("Material")
	}
	s.onChange(ctx)
	return nil
}
