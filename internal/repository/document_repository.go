package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/rs/zerolog"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
	SetVerified(ctx context.Context, id string, verified bool, verifiedBy string, verifiedAt *time.Time) error
	Delete(ctx context.Context, id string) (bool, error)
}

type documentRepository struct {
	*PostgresRepository
}

func NewDocumentRepository(db *sql.DB, logger zerolog.Logger) DocumentRepository {
	return &documentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const documentSelect = `
	SELECT
		d.id, d.student_id, d.document_type, d.document_name, d.object_key, d.file_url,
		COALESCE(d.content_type, ''), d.file_size, COALESCE(d.checksum, ''), COALESCE(d.uploaded_by, ''),
		d.verified, COALESCE(d.verified_by, ''), d.verified_at, d.uploaded_at, s.full_name
	FROM student_documents d
	JOIN students s ON s.id = d.student_id
`

func scanDocument(row interface{ Scan(...interface{}) error }) (*models.Document, error) {
	doc := &models.Document{}
	var verifiedAt sql.NullTime
	err := row.Scan(
		&doc.ID,
		&doc.StudentID,
		&doc.DocumentType,
		&doc.DocumentName,
		&doc.ObjectKey,
		&doc.FileURL,
		&doc.ContentType,
		&doc.FileSize,
		&doc.Checksum,
		&doc.UploadedBy,
		&doc.Verified,
		&doc.VerifiedBy,
		&verifiedAt,
		&doc.UploadedAt,
		&doc.StudentName,
	)
	if err != nil {
		return nil, err
	}
	doc.VerifiedAt = timePtr(verifiedAt)
	return doc, nil
}

func (r *documentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO student_documents (
			id, student_id, document_type, document_name, object_key, file_url,
			content_type, file_size, checksum, uploaded_by, verified, uploaded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.conn(ctx).ExecContext(ctx, query,
		doc.ID,
		doc.StudentID,
		doc.DocumentType,
		doc.DocumentName,
		doc.ObjectKey,
		doc.FileURL,
		nullString(doc.ContentType),
		doc.FileSize,
		nullString(doc.Checksum),
		nullString(doc.UploadedBy),
		doc.Verified,
		doc.UploadedAt,
	)

	return err
}

func (r *documentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	doc, err := scanDocument(r.conn(ctx).QueryRowContext(ctx, documentSelect+` WHERE d.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return doc, err
}

func (r *documentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("d.student_id = $%d", len(args)))
	}
	if filter.DocumentType != "" {
		args = append(args, filter.DocumentType)
		conditions = append(conditions, fmt.Sprintf("d.document_type = $%d", len(args)))
	}
	if filter.Verified != nil {
		args = append(args, *filter.Verified)
		conditions = append(conditions, fmt.Sprintf("d.verified = $%d", len(args)))
	}

	query := documentSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY d.uploaded_at DESC"

	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	return docs, rows.Err()
}

func (r *documentRepository) SetVerified(ctx context.Context, id string, verified bool, verifiedBy string, verifiedAt *time.Time) error {
	query := `
		UPDATE student_documents
		SET verified = $1, verified_by = $2, verified_at = $3
		WHERE id = $4
	`
	_, err := r.conn(ctx).ExecContext(ctx, query, verified, nullString(verifiedBy), nullTime(verifiedAt), id)
	return err
}

func (r *documentRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM student_documents WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
