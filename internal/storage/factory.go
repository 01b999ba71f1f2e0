package storage

import (
	"context"
	"fmt"

	"github.com/code-hustle/apiserver/config"
)

// NewFromConfig constructs the object store selected by configuration, or
// nil when no backend is configured. Avatar uploads are rejected with 503
// when storage is disabled.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "minio":
		backend, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return NewStorage(backend), nil
	case "gcs":
		backend, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return NewStorage(backend), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
