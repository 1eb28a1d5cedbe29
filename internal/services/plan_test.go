package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/yungbote/slideforge-backend/internal/modules/slides/plan"
	"github.com/yungbote/slideforge-backend/internal/platform/apierr"
	"github.com/yungbote/slideforge-backend/internal/platform/llm"
)

type drafterFunc func(ctx context.Context, in llm.DraftInput) (string, error)

func (f drafterFunc) Draft(ctx context.Context, in llm.DraftInput) (string, error) { return f(ctx, in) }

func TestPlanServiceParse(t *testing.T) {
	svc := NewPlanService(nil, nil, nil)
	out, err := svc.Parse(threeSlidePlan, 4)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(out.Slides) != 4 || out.Source != plan.SourceSlideHeadings || out.Padded != 1 {
		t.Fatalf("outcome: source=%s padded=%d slides=%d", out.Source, out.Padded, len(out.Slides))
	}
	if _, err := svc.Parse(threeSlidePlan, 0); err == nil {
		t.Fatalf("want error for zero slides")
	}
}

func TestPlanServiceDraft(t *testing.T) {
	var got llm.DraftInput
	svc := NewPlanService(nil, nil, drafterFunc(func(_ context.Context, in llm.DraftInput) (string, error) {
		got = in
		return "### Slide 1: X", nil
	}))
	out, err := svc.Draft(context.Background(), llm.DraftInput{Topic: "  Tides ", SlideCount: 5})
	if err != nil || out != "### Slide 1: X" {
		t.Fatalf("Draft: out=%q err=%v", out, err)
	}
	if got.Topic != "Tides" {
		t.Fatalf("topic not trimmed: %q", got.Topic)
	}
	if _, err := svc.Draft(context.Background(), llm.DraftInput{SlideCount: 5}); err == nil {
		t.Fatalf("want topic error")
	}
}

func TestPlanServiceDraftUnavailable(t *testing.T) {
	_, err := NewPlanService(nil, nil, nil).Draft(context.Background(), llm.DraftInput{Topic: "x", SlideCount: 1})
	ae, ok := apierr.As(err)
	if !ok || ae.Status != http.StatusServiceUnavailable || !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("want 503, got %v", err)
	}
}
