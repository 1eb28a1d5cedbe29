package gcp

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/slideforge-backend/internal/platform/dbctx"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

// BucketService stores generated slide assets in a single GCS bucket.
type BucketService interface {
	UploadFile(dbc dbctx.Context, key string, file io.Reader) error
	GetPublicURL(key string) string
}

type BucketConfig struct {
	Name          string
	CDNDomain     string
	PublicBaseURL string
}

type bucketService struct {
	log           *logger.Logger
	client        *storage.Client
	mode          StorageMode
	emulatorHost  string
	bucket        string
	cdnDomain     string
	publicBaseURL string
}

// NewBucketServiceFromEnv reads THUMBNAIL_GCS_BUCKET_NAME, THUMBNAIL_CDN_DOMAIN
// and OBJECT_STORAGE_PUBLIC_BASE_URL on top of the storage mode.
func NewBucketServiceFromEnv(ctx context.Context, log *logger.Logger) (BucketService, error) {
	storageCfg, err := ResolveStorageConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	return NewBucketService(ctx, log, storageCfg, BucketConfig{
		Name:          strings.TrimSpace(os.Getenv("THUMBNAIL_GCS_BUCKET_NAME")),
		CDNDomain:     strings.TrimSpace(os.Getenv("THUMBNAIL_CDN_DOMAIN")),
		PublicBaseURL: strings.TrimSpace(os.Getenv("OBJECT_STORAGE_PUBLIC_BASE_URL")),
	})
}

func NewBucketService(ctx context.Context, log *logger.Logger, storageCfg StorageConfig, cfg BucketConfig) (BucketService, error) {
	if err := ValidateStorageConfig(storageCfg); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("missing env var THUMBNAIL_GCS_BUCKET_NAME")
	}
	publicBase, err := resolvePublicBaseURL(storageCfg, cfg.PublicBaseURL)
	if err != nil {
		return nil, err
	}

	client, err := newStorageClient(ctx, storageCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog := log.With("service", "BucketService")
	serviceLog.Info("Object storage initialized",
		"mode", storageCfg.Mode,
		"inferred", storageCfg.Inferred,
		"bucket", cfg.Name,
		"public_base_url", publicBase,
	)
	return &bucketService{
		log:           serviceLog,
		client:        client,
		mode:          storageCfg.Mode,
		emulatorHost:  strings.TrimRight(storageCfg.EmulatorHost, "/"),
		bucket:        cfg.Name,
		cdnDomain:     cfg.CDNDomain,
		publicBaseURL: publicBase,
	}, nil
}

func newStorageClient(ctx context.Context, cfg StorageConfig) (*storage.Client, error) {
	if cfg.IsEmulator() {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimRight(cfg.EmulatorHost, "/"))
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}
	opts := append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	return storage.NewClient(ctx, opts...)
}

func resolvePublicBaseURL(cfg StorageConfig, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return "", fmt.Errorf("invalid OBJECT_STORAGE_PUBLIC_BASE_URL=%q; expected absolute URL like http://localhost:4443", raw)
		}
		return strings.TrimRight(raw, "/"), nil
	}
	if cfg.IsEmulator() {
		return strings.TrimRight(cfg.EmulatorHost, "/"), nil
	}
	return "", nil
}

func (bs *bucketService) UploadFile(dbc dbctx.Context, key string, file io.Reader) error {
	ctx, cancel := context.WithTimeout(ctxOrBackground(dbc.Ctx), 2*time.Minute)
	defer cancel()

	w := bs.client.Bucket(bs.bucket).Object(key).NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	w.CacheControl = "public, max-age=86400"
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (bs *bucketService) GetPublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if bs.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", bs.cdnDomain, key)
	}
	if bs.mode == StorageModeGCSEmulator {
		base := bs.publicBaseURL
		if base == "" {
			base = bs.emulatorHost
		}
		if base != "" {
			return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, url.PathEscape(bs.bucket), url.PathEscape(key))
		}
	}
	if bs.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", bs.publicBaseURL, bs.bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.bucket, key)
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".html"):
		return "text/html; charset=utf-8"
	case strings.HasSuffix(s, ".json"):
		return "application/json"
	default:
		return ""
	}
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
