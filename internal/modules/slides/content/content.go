package content

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/yungbote/slideforge-backend/internal/domain/slides"
)

// Request is the per-slide payload sent to the content API.
type Request struct {
	SlideNumber    int                   `json:"slideNumber"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Type           slides.SlideType      `json:"type"`
	TemplateData   slides.TemplateParams `json:"templateData"`
	SessionID      string                `json:"sessionId"`
	Language       string                `json:"language"`
	SlideStructure string                `json:"slideStructure"`
}

// GeneratedSlide is a fully rendered slide as returned by a generator.
type GeneratedSlide struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Content           string          `json:"content"`
	HTMLContent       string          `json:"htmlContent"`
	Status            string          `json:"status"`
	PreviewURL        string          `json:"previewUrl,omitempty"`
	ThumbnailURL      string          `json:"thumbnailUrl,omitempty"`
	Description       string          `json:"description,omitempty"`
	EstimatedDuration FlexInt         `json:"estimatedDuration,omitempty"`
	Interactive       bool            `json:"interactive,omitempty"`
	VisualElements    json.RawMessage `json:"visualElements,omitempty"`
}

// Generator produces one slide. Implementations must honor ctx cancellation.
type Generator interface {
	GenerateSlide(ctx context.Context, req Request) (*GeneratedSlide, error)
}

// Error is a slide-level failure reported by a generator. Its message is
// what ends up in the run's error list.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *Error) HTTPStatusCode() int { return e.StatusCode }

// FlexInt accepts 5, 5.0, "5" and "5 min".
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(raw); err == nil {
		raw = unq
	}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	if v, err := strconv.ParseFloat(fields[0], 64); err == nil {
		*f = FlexInt(int(v))
	}
	return nil
}
