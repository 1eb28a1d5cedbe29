package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/slideforge-backend/internal/modules/slides/content"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/thumbnail"
	"github.com/yungbote/slideforge-backend/internal/platform/llm"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
	"github.com/yungbote/slideforge-backend/internal/realtime/bus"
)

type Clients struct {
	Content    content.Generator
	Thumbnails *thumbnail.Stage
	Drafter    *llm.PlanDrafter
	SSEBus     bus.Bus
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Content API, or local rendering when none is configured
	if strings.TrimSpace(cfg.ContentAPIURL) != "" {
		c, err := content.NewHTTPClient(log, content.HTTPClientConfig{
			URL:     cfg.ContentAPIURL,
			APIKey:  cfg.ContentAPIKey,
			Timeout: cfg.ContentAPITimeout,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init content api client: %w", err)
		}
		out.Content = c
	} else {
		log.Warn("CONTENT_API_URL not set; generating slides locally")
		out.Content = content.NewLocalGenerator(log)
	}

	// Thumbnails
	if cfg.ThumbnailsEnabled {
		renderer, err := thumbnail.NewGGRenderer(cfg.ThumbnailFont)
		if err != nil {
			return Clients{}, fmt.Errorf("init thumbnail renderer: %w", err)
		}
		publisher, err := resolveThumbnailPublisher(ctx, log, cfg)
		if err != nil {
			return Clients{}, err
		}
		out.Thumbnails = thumbnail.NewStage(log, renderer, publisher, thumbnail.Config{
			MaxRetries: cfg.ThumbnailMaxRetries,
			Backoff:    cfg.ThumbnailBackoff,
		})
	}

	// Plan drafting
	drafter, err := llm.NewPlanDrafter(log, llm.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	})
	switch {
	case err == nil:
		out.Drafter = drafter
	case errors.Is(err, llm.ErrNotConfigured):
		log.Info("OPENAI_API_KEY not set; plan drafting disabled")
	default:
		return Clients{}, fmt.Errorf("init plan drafter: %w", err)
	}

	// Redis fan-out
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		b, err := bus.NewRedisBus(log, bus.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Channel:  cfg.RedisChannel,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		out.SSEBus = b
	}

	return out, nil
}
