package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage persists uploaded evidence photos.
type Storage interface {
	// Upload stores data under folder and returns the storage path.
	Upload(ctx context.Context, fileID uuid.UUID, folder, filename, contentType string, data io.Reader) (string, error)

	// Download retrieves a file by storage path.
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// Delete removes a file by storage path.
	Delete(ctx context.Context, storagePath string) error
}

// Type names a storage backend.
type Type string

const (
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
)

// Config selects and configures a backend.
type Config struct {
	Type         Type
	LocalPath    string
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	AWSAccessKey string
	AWSSecretKey string
}

// ErrNotFound is returned when a stored file does not exist.
var ErrNotFound = errors.New("stored file not found")

// New returns the backend named by cfg.Type. An empty type means local.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch Type(strings.ToLower(string(cfg.Type))) {
	case "", TypeLocal:
		path := cfg.LocalPath
		if strings.TrimSpace(path) == "" {
			path = "./uploads"
		}
		return NewLocalStorage(path)
	case TypeS3:
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("s3 bucket is required for s3 storage")
		}
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1"
		}
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// storagePath builds folder/<uuid>_<name><ext> with path separators removed.
func storagePath(fileID uuid.UUID, folder, filename string) string {
	ext := filepath.Ext(filename)
	base := sanitize(strings.TrimSuffix(filepath.Base(filename), ext))
	if base == "" || base == "." {
		base = "photo"
	}
	folder = sanitize(folder)
	if folder == "" {
		folder = fileID.String()[:2]
	}
	return fmt.Sprintf("%s/%s_%s%s", folder, fileID.String(), base, strings.ToLower(ext))
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "..", "_")
	return s
}
