package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/slideforge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/slideforge-backend/internal/http/middleware"
	"github.com/yungbote/slideforge-backend/internal/observability"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	// Metrics enables request instrumentation and GET /metrics when set.
	Metrics *observability.Metrics

	HealthHandler   *httpH.HealthHandler
	PlanHandler     *httpH.PlanHandler
	SessionHandler  *httpH.SessionHandler
	LessonHandler   *httpH.LessonHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.RequestContext())
	r.Use(httpMW.AccessLog(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Plans
		if cfg.PlanHandler != nil {
			api.POST("/plans/parse", cfg.PlanHandler.Parse)
			api.POST("/plans/draft", cfg.PlanHandler.Draft)
		}

		// Generation sessions
		if cfg.SessionHandler != nil {
			api.POST("/sessions/:id/runs", cfg.SessionHandler.StartRun)
			api.POST("/sessions/:id/stop", cfg.SessionHandler.StopRun)
			api.GET("/sessions/:id/state", cfg.SessionHandler.State)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/sessions/:id/stream", cfg.RealtimeHandler.SessionStream)
		}

		// Lessons
		if cfg.LessonHandler != nil {
			api.GET("/lessons/:id", cfg.LessonHandler.GetLesson)
			api.GET("/lessons/:id/runs", cfg.LessonHandler.ListRuns)
		}
	}

	return r
}
