package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/slideforge-backend/internal/modules/slides/thumbnail"
	"github.com/yungbote/slideforge-backend/internal/platform/gcp"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

var newBucketServiceFromEnv = gcp.NewBucketServiceFromEnv

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidConfig StorageProviderBootstrapErrorCode = "invalid_config"
	StorageProviderBootstrapErrorConnectFailed StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code   StorageProviderBootstrapErrorCode
	Bucket string
	Cause  error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf("object storage bootstrap failed (code=%s bucket=%q): %v", e.Code, e.Bucket, e.Cause)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func classifyStorageProviderBootstrapError(bucket string, err error) error {
	if err == nil {
		return nil
	}
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *gcp.StorageConfigError
	if errors.As(err, &cfgErr) {
		code = StorageProviderBootstrapErrorInvalidConfig
	}
	return &StorageProviderBootstrapError{Code: code, Bucket: bucket, Cause: err}
}

// resolveThumbnailPublisher uploads thumbnails to the bucket when one is
// configured and otherwise inlines them as data URLs.
func resolveThumbnailPublisher(ctx context.Context, log *logger.Logger, cfg Config) (thumbnail.Publisher, error) {
	bucket := strings.TrimSpace(cfg.ThumbnailBucket)
	if bucket == "" {
		log.Info("No thumbnail bucket configured; thumbnails are stored as data URLs")
		return thumbnail.DataURLPublisher{}, nil
	}
	svc, err := newBucketServiceFromEnv(ctx, log)
	if err != nil {
		err = classifyStorageProviderBootstrapError(bucket, err)
		log.Error("Object storage provider selection failed", "bucket", bucket, "error", err)
		return nil, err
	}
	return thumbnail.NewBucketPublisher(svc), nil
}
