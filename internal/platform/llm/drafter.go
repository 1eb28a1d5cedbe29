package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/yungbote/slideforge-backend/internal/observability"
	"github.com/yungbote/slideforge-backend/internal/platform/httpx"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

const (
	DefaultModel      = "gpt-4o-mini"
	defaultMaxRetries = 3
)

var ErrNotConfigured = errors.New("plan drafting is not configured")

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	Timeout    time.Duration
}

type DraftInput struct {
	Topic          string `json:"topic"`
	AgeGroup       string `json:"ageGroup"`
	SlideCount     int    `json:"slideCount"`
	AdditionalInfo string `json:"additionalInfo,omitempty"`
	Language       string `json:"language,omitempty"`
}

// PlanDrafter asks a chat model for a markdown lesson plan in the
// "### Slide N: Title" / "**Goal:**" layout the plan parser reads first.
type PlanDrafter struct {
	log        *logger.Logger
	client     openai.Client
	model      string
	maxRetries int
	timeout    time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	metrics    *observability.Metrics
}

func NewPlanDrafter(log *logger.Logger, cfg Config) (*PlanDrafter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if log == nil {
		log = logger.Nop()
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	// Negative disables retries; zero takes the default.
	retries := cfg.MaxRetries
	switch {
	case retries < 0:
		retries = 0
	case retries == 0:
		retries = defaultMaxRetries
	}
	return &PlanDrafter{
		log:        log.With("service", "PlanDrafter"),
		client:     openai.NewClient(opts...),
		model:      model,
		maxRetries: retries,
		timeout:    cfg.Timeout,
		sleep:      httpx.SleepContext,
		metrics:    observability.Current(),
	}, nil
}

var systemPrompt = strings.TrimSpace(`
You write lesson plans for teachers. Output markdown only.
For every slide write a heading line "### Slide N: <title>" followed by a line
"**Goal:** <one or two sentences describing what the slide teaches>".
Number slides from 1 with no gaps. The first slide introduces the topic, the
second to last slide is a short interactive activity and the last slide
summarizes. Do not add commentary before or after the plan.`)

var userTemplate = template.Must(template.New("draft").Parse(strings.TrimSpace(`
Topic: {{.Topic}}
Audience age group: {{if .AgeGroup}}{{.AgeGroup}}{{else}}general{{end}}
Number of slides: {{.SlideCount}}
Language: {{if .Language}}{{.Language}}{{else}}en{{end}}
{{- if .AdditionalInfo}}
Additional notes from the teacher:
{{.AdditionalInfo}}
{{- end}}`)))

func renderUserPrompt(in DraftInput) (string, error) {
	var b strings.Builder
	if err := userTemplate.Execute(&b, in); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Draft retries retryable failures with doubling, jittered backoff.
func (d *PlanDrafter) Draft(ctx context.Context, in DraftInput) (string, error) {
	if strings.TrimSpace(in.Topic) == "" {
		return "", fmt.Errorf("topic required")
	}
	if in.SlideCount <= 0 {
		return "", fmt.Errorf("slideCount must be positive")
	}
	user, err := renderUserPrompt(in)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	return httpx.Retry(ctx, httpx.RetryPolicy{
		Retries: d.maxRetries,
		Base:    time.Second,
		Sleep:   d.sleep,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			d.log.Warn("plan draft retrying",
				"attempt", attempt,
				"max_retries", d.maxRetries,
				"sleep", wait.String(),
				"error", err.Error(),
			)
		},
	}, func(ctx context.Context) (string, error) {
		return d.complete(ctx, user)
	})
}

func (d *PlanDrafter) complete(ctx context.Context, user string) (string, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	start := time.Now()
	resp, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(d.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			d.metrics.ObserveLLMRequest(d.model, observability.StatusLabel(apiErr.StatusCode), time.Since(start), 0, 0)
			return "", &httpx.StatusError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
		}
		d.metrics.ObserveLLMRequest(d.model, "error", time.Since(start), 0, 0)
		return "", err
	}
	d.metrics.ObserveLLMRequest(d.model, "ok", time.Since(start), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	plan := strings.TrimSpace(resp.Choices[0].Message.Content)
	if plan == "" {
		return "", errors.New("openai: empty plan")
	}
	return plan, nil
}
