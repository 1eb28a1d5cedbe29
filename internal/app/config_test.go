package app

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/slideforge-backend/internal/modules/slides/content"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "CONTENT_API_URL", "SLIDE_GENERATION_CONCURRENCY", "THUMBNAIL_MAX_RETRIES", "THUMBNAIL_BACKOFF_MS", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig(logger.Nop())
	if cfg.Port != "8080" {
		t.Fatalf("port: got=%q", cfg.Port)
	}
	if cfg.ThumbnailMaxRetries != 3 || cfg.ThumbnailBackoff != time.Second {
		t.Fatalf("thumbnail retry defaults: retries=%d backoff=%v", cfg.ThumbnailMaxRetries, cfg.ThumbnailBackoff)
	}
	if cfg.ContentAPITimeout != 90*time.Second {
		t.Fatalf("content timeout: got=%v", cfg.ContentAPITimeout)
	}
	if cfg.Concurrency != 0 || len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("concurrency=%d origins=%v", cfg.Concurrency, cfg.AllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SLIDE_GENERATION_CONCURRENCY", "4")
	t.Setenv("THUMBNAIL_BACKOFF_MS", "250")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.test, ,https://b.test ")
	cfg := LoadConfig(nil)
	if cfg.Concurrency != 4 {
		t.Fatalf("concurrency: got=%d", cfg.Concurrency)
	}
	if cfg.ThumbnailBackoff != 250*time.Millisecond {
		t.Fatalf("backoff: got=%v", cfg.ThumbnailBackoff)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://a.test" || cfg.AllowedOrigins[1] != "https://b.test" {
		t.Fatalf("origins: got=%v", cfg.AllowedOrigins)
	}
}

func TestWireClientsLocalFallbacks(t *testing.T) {
	cfg := Config{ThumbnailsEnabled: true, ThumbnailMaxRetries: 3, ThumbnailBackoff: time.Second}
	c, err := wireClients(context.Background(), logger.Nop(), cfg)
	if err != nil {
		t.Fatalf("wireClients: %v", err)
	}
	if _, ok := c.Content.(*content.LocalGenerator); !ok {
		t.Fatalf("content: want local generator, got %T", c.Content)
	}
	if c.Thumbnails == nil {
		t.Fatalf("thumbnail stage should be wired")
	}
	if c.Drafter != nil || c.SSEBus != nil {
		t.Fatalf("drafter and bus need credentials: drafter=%v bus=%v", c.Drafter, c.SSEBus)
	}

	c, err = wireClients(context.Background(), logger.Nop(), Config{ContentAPIURL: "http://content.test/generate", OpenAIAPIKey: "sk-test"})
	if err != nil {
		t.Fatalf("wireClients with api: %v", err)
	}
	if _, ok := c.Content.(*content.LocalGenerator); ok {
		t.Fatalf("content api url should select the http client")
	}
	if c.Drafter == nil || c.Thumbnails != nil {
		t.Fatalf("drafter=%v thumbnails=%v", c.Drafter, c.Thumbnails)
	}
}
