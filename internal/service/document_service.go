package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/repository"
	"github.com/ilham-education/ilham-backend/internal/service/integration"
	"github.com/ilham-education/ilham-backend/internal/service/storage"
	"github.com/ilham-education/ilham-backend/pkg/hash"
	"github.com/rs/zerolog"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsStudent() bool { return a.Role == models.RoleStudent }

var documentExtensions = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

type DocumentService interface {
	Upload(ctx context.Context, actor Actor, req *models.UploadDocumentRequest, content io.Reader) (*models.Document, error)
	Get(ctx context.Context, actor Actor, id string) (*models.Document, error)
	ListMine(ctx context.Context, userID string) ([]models.Document, error)
	ListByStudent(ctx context.Context, actor Actor, studentID string) ([]models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
	Verify(ctx context.Context, id, adminID string) (*models.Document, error)
	Unverify(ctx context.Context, id string) (*models.Document, error)
	Delete(ctx context.Context, actor Actor, id string) error
	Open(ctx context.Context, actor Actor, id string) (*models.Document, io.ReadCloser, int64, error)
}

type documentService struct {
	tx          repository.Transactor
	docRepo     repository.DocumentRepository
	studentRepo repository.StudentRepository
	storage     storage.Storage
	hasher      *hash.Hasher
	notifier    *notifier
	maxSize     int64
	logger      zerolog.Logger
}

func NewDocumentService(
	tx repository.Transactor,
	docRepo repository.DocumentRepository,
	studentRepo repository.StudentRepository,
	notificationRepo repository.NotificationRepository,
	store storage.Storage,
	publisher integration.EventPublisher,
	maxSize int64,
	logger zerolog.Logger,
) DocumentService {
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	return &documentService{
		tx:          tx,
		docRepo:     docRepo,
		studentRepo: studentRepo,
		storage:     store,
		hasher:      hash.NewHasher(hash.SHA256),
		notifier:    newNotifier(notificationRepo, studentRepo, publisher, logger),
		maxSize:     maxSize,
		logger:      logger,
	}
}

func isDocumentType(t string) bool {
	for _, known := range models.DocumentTypes {
		if known == t {
			return true
		}
	}
	return false
}

// ownStudent resolves the student profile of a STUDENT caller.
func (s *documentService) ownStudent(ctx context.Context, userID string) (*models.Student, error) {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student profile: %w", err)
	}
	if student == nil {
		return nil, notFound("Student profile")
	}
	return student, nil
}

// targetStudent applies the upload policy: staff name the student, students
// upload only for themselves.
func (s *documentService) targetStudent(ctx context.Context, actor Actor, requested string) (string, error) {
	switch actor.Role {
	case models.RoleAdmin, models.RoleCounselor:
		if requested == "" {
			return "", validationf("Student ID is required for staff upload")
		}
		student, err := s.studentRepo.GetByID(ctx, requested)
		if err != nil {
			return "", fmt.Errorf("failed to get student: %w", err)
		}
		if student == nil {
			return "", notFound("Student")
		}
		return student.ID, nil
	case models.RoleStudent:
		student, err := s.ownStudent(ctx, actor.UserID)
		if err != nil {
			return "", err
		}
		if requested != "" && requested != student.ID {
			return "", forbidden("You can only upload documents to your own profile")
		}
		return student.ID, nil
	default:
		return "", forbidden("Access denied")
	}
}

func (s *documentService) Upload(ctx context.Context, actor Actor, req *models.UploadDocumentRequest, content io.Reader) (*models.Document, error) {
	if content == nil || req.FileName == "" {
		return nil, validationf("No file uploaded")
	}
	docType := strings.ToLower(strings.TrimSpace(req.DocumentType))
	if docType == "" {
		return nil, validationf("Document type is required")
	}
	if !isDocumentType(docType) {
		return nil, validationf("Invalid document type. Must be one of: %s", strings.Join(models.DocumentTypes, ", "))
	}

	ext := strings.ToLower(filepath.Ext(req.FileName))
	contentType, ok := documentExtensions[ext]
	if !ok {
		return nil, validationf("Only images, PDFs, and Word documents are allowed")
	}
	if req.Size > s.maxSize {
		return nil, validationf("File must not exceed %d MB", s.maxSize>>20)
	}

	studentID, err := s.targetStudent(ctx, actor, req.StudentID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("documents/%s%s", uuid.New().String(), ext)
	reader, sum, err := s.hasher.TeeReader(io.LimitReader(content, s.maxSize+1))
	if err != nil {
		return nil, err
	}
	if err := s.storage.Upload(ctx, key, reader, req.Size, contentType); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	name := strings.TrimSpace(req.DocumentName)
	if name == "" {
		name = filepath.Base(req.FileName)
	}

	doc := &models.Document{
		ID:           uuid.New().String(),
		StudentID:    studentID,
		DocumentType: docType,
		DocumentName: name,
		ObjectKey:    key,
		FileURL:      s.storage.GetURL(key),
		ContentType:  contentType,
		FileSize:     req.Size,
		Checksum:     sum(),
		UploadedBy:   actor.UserID,
		UploadedAt:   time.Now(),
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		s.removeObject(ctx, key)
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	s.logger.Info().
		Str("document_id", doc.ID).
		Str("student_id", studentID).
		Str("type", docType).
		Str("uploaded_by", actor.UserID).
		Msg("Document uploaded")

	return doc, nil
}

func (s *documentService) load(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if doc == nil {
		return nil, notFound("Document")
	}
	return doc, nil
}

func (s *documentService) checkOwner(ctx context.Context, actor Actor, doc *models.Document) error {
	if !actor.IsStudent() {
		return nil
	}
	student, err := s.ownStudent(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if student.ID != doc.StudentID {
		return forbidden("Access denied")
	}
	return nil
}

func (s *documentService) Get(ctx context.Context, actor Actor, id string) (*models.Document, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, actor, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *documentService) ListMine(ctx context.Context, userID string) ([]models.Document, error) {
	student, err := s.ownStudent(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.List(ctx, models.DocumentFilter{StudentID: student.ID})
}

func (s *documentService) ListByStudent(ctx context.Context, actor Actor, studentID string) ([]models.Document, error) {
	if actor.IsStudent() {
		student, err := s.ownStudent(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		if student.ID != studentID {
			return nil, forbidden("Access denied")
		}
	}
	return s.List(ctx, models.DocumentFilter{StudentID: studentID})
}

func (s *documentService) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	docs, err := s.docRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents: %w", err)
	}
	return docs, nil
}

// Verify marks the document verified and notifies its student in the same
// transaction.
func (s *documentService) Verify(ctx context.Context, id, adminID string) (*models.Document, error) {
	var doc *models.Document
	var notification *models.Notification

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.load(ctx, id)
		if err != nil {
			return err
		}

		now := time.Now()
		if err := s.docRepo.SetVerified(ctx, id, true, adminID, &now); err != nil {
			return fmt.Errorf("failed to verify document: %w", err)
		}
		doc.Verified = true
		doc.VerifiedBy = adminID
		doc.VerifiedAt = &now

		notification, err = s.notifier.create(ctx, doc.StudentID,
			fmt.Sprintf("Your document '%s' has been verified.", doc.DocumentName))
		if err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("document_id", id).Str("verified_by", adminID).Msg("Document verified")
	s.notifier.announce(ctx, notification)
	return doc, nil
}

func (s *documentService) Unverify(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.docRepo.SetVerified(ctx, id, false, "", nil); err != nil {
		return nil, fmt.Errorf("failed to unverify document: %w", err)
	}
	doc.Verified = false
	doc.VerifiedBy = ""
	doc.VerifiedAt = nil
	return doc, nil
}

// Delete lets admins remove any document and students remove their own
// unverified ones. The stored file is removed after the row.
func (s *documentService) Delete(ctx context.Context, actor Actor, id string) error {
	doc, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleStudent:
		if err := s.checkOwner(ctx, actor, doc); err != nil {
			return err
		}
		if doc.Verified {
			return forbidden("Verified documents cannot be deleted")
		}
	default:
		return forbidden("Access denied")
	}

	ok, err := s.docRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if !ok {
		return notFound("Document")
	}

	s.removeObject(ctx, doc.ObjectKey)
	s.logger.Info().Str("document_id", id).Str("deleted_by", actor.UserID).Msg("Document deleted")
	return nil
}

func (s *documentService) Open(ctx context.Context, actor Actor, id string) (*models.Document, io.ReadCloser, int64, error) {
	doc, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, 0, err
	}

	rc, size, err := s.storage.Download(ctx, doc.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, 0, notFound("Document file")
		}
		return nil, nil, 0, fmt.Errorf("failed to open document: %w", err)
	}
	return doc, rc, size, nil
}

func (s *documentService) removeObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to remove stored file")
	}
}
