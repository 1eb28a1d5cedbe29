package thumbnail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/yungbote/slideforge-backend/internal/platform/dbctx"
	"github.com/yungbote/slideforge-backend/internal/platform/gcp"
)

// Publisher stores a base64 PNG and returns the URL the UI should load.
type Publisher interface {
	Publish(ctx context.Context, lessonID, slideID, b64PNG string) (string, error)
}

// DataURLPublisher inlines the image. Used when no bucket is configured.
type DataURLPublisher struct{}

func (DataURLPublisher) Publish(_ context.Context, _, _ string, b64PNG string) (string, error) {
	return "data:image/png;base64," + b64PNG, nil
}

type BucketPublisher struct {
	bucket gcp.BucketService
}

func NewBucketPublisher(bucket gcp.BucketService) *BucketPublisher {
	return &BucketPublisher{bucket: bucket}
}

func ObjectKey(lessonID, slideID string) string {
	return fmt.Sprintf("thumbnails/%s/%s.png", lessonID, slideID)
}

func (p *BucketPublisher) Publish(ctx context.Context, lessonID, slideID, b64PNG string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(b64PNG)
	if err != nil {
		return "", fmt.Errorf("decode thumbnail: %w", err)
	}
	key := ObjectKey(lessonID, slideID)
	if err := p.bucket.UploadFile(dbctx.Context{Ctx: ctx}, key, bytes.NewReader(raw)); err != nil {
		return "", err
	}
	return p.bucket.GetPublicURL(key), nil
}
