package app

import (
	httpH "github.com/yungbote/slideforge-backend/internal/http/handlers"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
	"github.com/yungbote/slideforge-backend/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Plan     *httpH.PlanHandler
	Session  *httpH.SessionHandler
	Lesson   *httpH.LessonHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, svc Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Plan:     httpH.NewPlanHandler(svc.Plans),
		Session:  httpH.NewSessionHandler(svc.Generation),
		Lesson:   httpH.NewLessonHandler(svc.Generation),
		Realtime: httpH.NewRealtimeHandler(log, hub),
	}
}
