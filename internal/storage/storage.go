package storage

import (
	"context"
	"fmt"
	"io"

	"media-console/internal/config"
)

// BlobStorage stores asset binaries. Metadata lives in the database;
// only the bytes go through here.
type BlobStorage interface {
	// Save writes the content and returns the storage path recorded on
	// the asset row.
	Save(ctx context.Context, assetID, filename string, reader io.Reader) (string, error)

	// Open returns a reader for a previously saved path.
	Open(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// Delete removes the stored content. Deleting a missing path is not
	// an error.
	Delete(ctx context.Context, storagePath string) error
}

// New selects a driver from config.
func New(cfg config.StorageConfig) (BlobStorage, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStorage(cfg.LocalPath), nil
	case "s3":
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
