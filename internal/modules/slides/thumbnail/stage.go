package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/slideforge-backend/internal/observability"
	"github.com/yungbote/slideforge-backend/internal/platform/httpx"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

const (
	DefaultMaxRetries = 3
	DefaultBackoff    = time.Second
)

// ErrNoHTML is returned for slides that have nothing to render.
var ErrNoHTML = errors.New("slide has no html content")

// Renderer turns slide HTML into a base64-encoded PNG.
type Renderer interface {
	Render(ctx context.Context, slideID, htmlContent string, slideNumber int) (string, error)
}

type RendererFunc func(ctx context.Context, slideID, htmlContent string, slideNumber int) (string, error)

func (f RendererFunc) Render(ctx context.Context, slideID, htmlContent string, slideNumber int) (string, error) {
	return f(ctx, slideID, htmlContent, slideNumber)
}

type Config struct {
	MaxRetries int
	Backoff    time.Duration
}

// Stage renders previews with linear backoff and hands them to a Publisher.
type Stage struct {
	log       *logger.Logger
	renderer  Renderer
	publisher Publisher
	cfg       Config
	sleep     func(ctx context.Context, d time.Duration) error
	metrics   *observability.Metrics
}

func NewStage(log *logger.Logger, renderer Renderer, publisher Publisher, cfg Config) *Stage {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	if publisher == nil {
		publisher = DataURLPublisher{}
	}
	return &Stage{
		log:       log.With("service", "ThumbnailStage"),
		renderer:  renderer,
		publisher: publisher,
		cfg:       cfg,
		sleep:     httpx.SleepContext,
		metrics:   observability.Current(),
	}
}

func (s *Stage) MaxRetries() int { return s.cfg.MaxRetries }

// RenderWithRetry makes up to maxRetries render attempts. After a failed
// attempt n it waits n*backoff; no wait follows the final attempt. The last
// render error is returned when every attempt fails.
func (s *Stage) RenderWithRetry(ctx context.Context, slideID, htmlContent string, slideNumber, maxRetries int) (string, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return "", ErrNoHTML
	}
	if s.renderer == nil {
		return "", fmt.Errorf("thumbnail renderer not configured")
	}
	if maxRetries <= 0 {
		maxRetries = s.cfg.MaxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		img, err := s.renderer.Render(ctx, slideID, htmlContent, slideNumber)
		if err == nil {
			if attempt > 1 {
				s.log.Info("thumbnail rendered after retry", "slide_id", slideID, "slide_number", slideNumber, "attempt", attempt)
			}
			return img, nil
		}
		lastErr = err
		s.log.Warn("thumbnail render failed",
			"slide_id", slideID,
			"slide_number", slideNumber,
			"attempt", attempt,
			"max_retries", maxRetries,
			"error", err,
		)
		if attempt == maxRetries {
			break
		}
		if err := s.sleep(ctx, s.cfg.Backoff*time.Duration(attempt)); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("thumbnail for slide %d failed after %d attempts: %w", slideNumber, maxRetries, lastErr)
}

// Thumbnail renders with the configured retry bound and publishes the image.
// The returned string is the URL to store on the slide.
func (s *Stage) Thumbnail(ctx context.Context, lessonID, slideID, htmlContent string, slideNumber int) (string, error) {
	img, err := s.RenderWithRetry(ctx, slideID, htmlContent, slideNumber, s.cfg.MaxRetries)
	if err != nil {
		if !errors.Is(err, ErrNoHTML) {
			s.metrics.ObserveThumbnail("render_failed")
		}
		return "", err
	}
	url, err := s.publisher.Publish(ctx, lessonID, slideID, img)
	if err != nil {
		s.metrics.ObserveThumbnail("publish_failed")
		return "", fmt.Errorf("publish thumbnail for slide %d: %w", slideNumber, err)
	}
	s.metrics.ObserveThumbnail("ok")
	return url, nil
}
