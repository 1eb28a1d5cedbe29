package app

import (
	"github.com/yungbote/slideforge-backend/internal/data/repos"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/generation"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/plan"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
	"github.com/yungbote/slideforge-backend/internal/realtime"
	"github.com/yungbote/slideforge-backend/internal/services"
)

type Services struct {
	Plans      services.PlanService
	Generation services.SlideGenerationService
	Notifier   services.SlideNotifier
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet repos.Repos, hub *realtime.SSEHub) Services {
	log.Info("Wiring services...")

	var emitter services.SSEEmitter = &services.HubEmitter{Hub: hub}
	if clients.SSEBus != nil {
		emitter = &services.BusEmitter{Bus: clients.SSEBus, Log: log}
	}
	notifier := services.NewSlideNotifier(emitter)

	parser := plan.NewParser(log)
	var drafter services.PlanDrafter
	if clients.Drafter != nil {
		drafter = clients.Drafter
	}

	return Services{
		Plans: services.NewPlanService(log, parser, drafter),
		Generation: services.NewSlideGenerationService(
			log,
			parser,
			clients.Content,
			clients.Thumbnails,
			notifier,
			reposet.Lessons,
			reposet.Runs,
			generation.Config{
				Concurrency:    cfg.Concurrency,
				SlideStructure: cfg.SlideStructure,
			},
			services.WithSessionIdleTTL(cfg.SessionIdleTTL),
		),
		Notifier: notifier,
	}
}
