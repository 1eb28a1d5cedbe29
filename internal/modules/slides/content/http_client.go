package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/slideforge-backend/internal/observability"
	"github.com/yungbote/slideforge-backend/internal/platform/ctxutil"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

const genericFailureMessage = "slide generation failed"

type HTTPClientConfig struct {
	// URL is the full endpoint that generates a single slide.
	URL    string
	APIKey string
	// Timeout bounds each call. Zero disables the per-call deadline.
	Timeout time.Duration
}

type HTTPClient struct {
	log     *logger.Logger
	url     string
	apiKey  string
	timeout time.Duration
	http    *http.Client
	metrics *observability.Metrics
}

func NewHTTPClient(log *logger.Logger, cfg HTTPClientConfig) (*HTTPClient, error) {
	u := strings.TrimSpace(cfg.URL)
	if u == "" {
		return nil, fmt.Errorf("content api url required")
	}
	return &HTTPClient{
		log:     logOrNop(log).With("service", "ContentAPIClient"),
		url:     u,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		timeout: cfg.Timeout,
		http:    &http.Client{},
		metrics: observability.Current(),
	}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Slide   *GeneratedSlide `json:"slide"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// GenerateSlide makes exactly one attempt; a failed slide stays failed for
// the run.
func (c *HTTPClient) GenerateSlide(ctx context.Context, req Request) (*GeneratedSlide, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode slide request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build slide request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if td := ctxutil.GetTraceData(ctx); td != nil && td.RequestID != "" {
		httpReq.Header.Set("X-Request-Id", td.RequestID)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.metrics.ObserveContentRequest("timeout", time.Since(start))
			return nil, &Error{Message: fmt.Sprintf("content api timed out after %s", c.timeout)}
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			c.metrics.ObserveContentRequest("cancelled", time.Since(start))
			return nil, fmt.Errorf("slide %d: %w", req.SlideNumber, context.Canceled)
		}
		c.metrics.ObserveContentRequest("error", time.Since(start))
		return nil, fmt.Errorf("content api request: %w", err)
	}
	c.metrics.ObserveContentRequest(observability.StatusLabel(resp.StatusCode), time.Since(start))
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("read content api response: %w", readErr)
	}

	c.log.Debug("content api responded",
		"slide_number", req.SlideNumber,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ""
		if decodeErr == nil {
			msg = env.message()
		}
		if msg == "" {
			msg = fmt.Sprintf("%s (HTTP %d)", genericFailureMessage, resp.StatusCode)
		}
		return nil, &Error{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: "content api returned malformed JSON"}
	}
	if !env.Success || env.Slide == nil {
		msg := env.message()
		if msg == "" {
			msg = genericFailureMessage
		}
		return nil, &Error{StatusCode: resp.StatusCode, Message: msg}
	}
	return env.Slide, nil
}

// message reads "error" as either a string or {"message": "..."}.
func (e envelope) message() string {
	if len(e.Error) > 0 {
		var s string
		if err := json.Unmarshal(e.Error, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(e.Error, &obj); err == nil && strings.TrimSpace(obj.Message) != "" {
			return strings.TrimSpace(obj.Message)
		}
	}
	return strings.TrimSpace(e.Message)
}

func logOrNop(log *logger.Logger) *logger.Logger {
	if log == nil {
		return logger.Nop()
	}
	return log
}
