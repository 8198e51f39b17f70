package storage

import (
	"context"

	"solden-marketplace-service/internal/config"
	"solden-marketplace-service/internal/ports/outbound"

	"github.com/rs/zerolog"
)

// NewFromConfig selects the blob store backend: S3 when a bucket is
// configured, the local filesystem otherwise.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (outbound.BlobStore, error) {
	if cfg.Storage.S3Bucket != "" {
		return NewS3Store(ctx, S3StoreParams{
			Bucket: cfg.Storage.S3Bucket,
			Region: cfg.Storage.S3Region,
			Logger: logger,
		})
	}

	return NewLocalStore(LocalStoreParams{
		Root:    cfg.Storage.Root,
		BaseURL: cfg.Storage.BaseURL,
		Logger:  logger,
	})
}
