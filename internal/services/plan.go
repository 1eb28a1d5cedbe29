package services

import (
	"context"
	"errors"
	"strings"

	"github.com/yungbote/slideforge-backend/internal/modules/slides/plan"
	"github.com/yungbote/slideforge-backend/internal/platform/apierr"
	"github.com/yungbote/slideforge-backend/internal/platform/llm"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

const maxSlideCount = 50

// PlanDrafter is satisfied by *llm.PlanDrafter.
type PlanDrafter interface {
	Draft(ctx context.Context, in llm.DraftInput) (string, error)
}

type PlanService interface {
	Parse(planInput any, slideCount int) (plan.Outcome, error)
	Draft(ctx context.Context, in llm.DraftInput) (string, error)
}

type planService struct {
	log     *logger.Logger
	parser  *plan.Parser
	drafter PlanDrafter
}

// NewPlanService builds the plan service. drafter may be nil when no model
// is configured; Draft then reports the service as unavailable.
func NewPlanService(log *logger.Logger, parser *plan.Parser, drafter PlanDrafter) PlanService {
	if log == nil {
		log = logger.Nop()
	}
	if parser == nil {
		parser = plan.NewParser(log)
	}
	return &planService{
		log:     log.With("service", "PlanService"),
		parser:  parser,
		drafter: drafter,
	}
}

func validSlideCount(n int) error {
	if n <= 0 || n > maxSlideCount {
		return apierr.BadRequest("invalid_slide_count", errors.New("slideCount must be between 1 and 50"))
	}
	return nil
}

func (s *planService) Parse(planInput any, slideCount int) (plan.Outcome, error) {
	if err := validSlideCount(slideCount); err != nil {
		return plan.Outcome{}, err
	}
	return s.parser.ParseDetailed(planInput, slideCount), nil
}

func (s *planService) Draft(ctx context.Context, in llm.DraftInput) (string, error) {
	if s.drafter == nil {
		return "", apierr.Unavailable("plan_drafting_unavailable", llm.ErrNotConfigured)
	}
	in.Topic = strings.TrimSpace(in.Topic)
	if in.Topic == "" {
		return "", apierr.BadRequest("topic_required", errors.New("topic required"))
	}
	if err := validSlideCount(in.SlideCount); err != nil {
		return "", err
	}
	out, err := s.drafter.Draft(ctx, in)
	if err != nil {
		s.log.Warn("plan draft failed", "topic", in.Topic, "error", err)
		return "", err
	}
	return out, nil
}
