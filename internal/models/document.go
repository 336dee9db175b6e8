package models

import "time"

var DocumentTypes = []string{
	"passport",
	"transcript",
	"certificate",
	"ielts",
	"recommendation",
	"statement",
	"cv",
	"photo",
	"other",
}

type Document struct {
	ID           string     `json:"id" db:"id"`
	StudentID    string     `json:"student_id" db:"student_id"`
	DocumentType string     `json:"document_type" db:"document_type"`
	DocumentName string     `json:"document_name" db:"document_name"`
	ObjectKey    string     `json:"-" db:"object_key"`
	FileURL      string     `json:"file_url" db:"file_url"`
	ContentType  string     `json:"content_type" db:"content_type"`
	FileSize     int64      `json:"file_size" db:"file_size"`
	Checksum     string     `json:"checksum" db:"checksum"`
	UploadedBy   string     `json:"uploaded_by,omitempty" db:"uploaded_by"`
	Verified     bool       `json:"verified" db:"verified"`
	VerifiedBy   string     `json:"verified_by,omitempty" db:"verified_by"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty" db:"verified_at"`
	UploadedAt   time.Time  `json:"uploaded_at" db:"uploaded_at"`
	StudentName  string     `json:"student_name,omitempty" db:"student_name"`
}

type DocumentFilter struct {
	StudentID    string
	DocumentType string
	Verified     *bool
}
