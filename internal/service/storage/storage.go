package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ilham-education/ilham-backend/internal/config"
)

var ErrObjectNotFound = errors.New("object not found")

// Storage keeps uploaded files under flat object keys such as
// "documents/<uuid>.pdf".
type Storage interface {
	Upload(ctx context.Context, key string, data io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetURL(key string) string
}

func New(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Provider {
	case "", "local":
		return NewLocalStorage(cfg.Local.Dir, cfg.Local.PublicPath)
	case "minio":
		return NewMinIOStorage(cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
