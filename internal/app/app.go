package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/slideforge-backend/internal/data/db"
	"github.com/yungbote/slideforge-backend/internal/data/repos"
	apphttp "github.com/yungbote/slideforge-backend/internal/http"
	"github.com/yungbote/slideforge-backend/internal/observability"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
	"github.com/yungbote/slideforge-backend/internal/realtime"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    repos.Repos
	Clients  Clients
	Services Services
	SSEHub   *realtime.SSEHub
	Server   *apphttp.Server

	dbSvc        *db.Service
	shutdownOtel func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	ctx := context.Background()
	shutdownOtel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     os.Getenv("APP_VERSION"),
	})

	metrics := observability.Init(log)

	dbSvc, err := wireDatabase(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	var theDB *gorm.DB
	if dbSvc != nil {
		theDB = dbSvc.DB()
	}

	clientset, err := wireClients(ctx, log, cfg)
	if err != nil {
		if dbSvc != nil {
			_ = dbSvc.Close()
		}
		log.Sync()
		return nil, err
	}

	ssehub := realtime.NewSSEHub(log)
	reposet := wireRepos(theDB, log)
	serviceset := wireServices(log, cfg, clientset, reposet, ssehub)
	handlerset := wireHandlers(log, serviceset, ssehub)

	server := apphttp.NewServer(apphttp.RouterConfig{
		Log:             log,
		ServiceName:     cfg.ServiceName,
		AllowedOrigins:  cfg.AllowedOrigins,
		Metrics:         metrics,
		HealthHandler:   handlerset.Health,
		PlanHandler:     handlerset.Plan,
		SessionHandler:  handlerset.Session,
		LessonHandler:   handlerset.Lesson,
		RealtimeHandler: handlerset.Realtime,
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clientset,
		Services:     serviceset,
		SSEHub:       ssehub,
		Server:       server,
		dbSvc:        dbSvc,
		shutdownOtel: shutdownOtel,
	}, nil
}

// Start launches background work. With a Redis bus configured, events
// published by any instance are forwarded into this instance's hub.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Clients.SSEBus != nil && a.SSEHub != nil {
		if err := a.Clients.SSEBus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
			a.Log.Warn("SSE bus forwarder failed to start", "error", err)
		}
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Server listening", "addr", addr)
	return a.Server.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("HTTP server shutdown failed", "error", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Generation != nil {
		a.Services.Generation.Close()
	}
	if a.Clients.SSEBus != nil {
		if err := a.Clients.SSEBus.Close(); err != nil {
			a.Log.Warn("SSE bus close failed", "error", err)
		}
	}
	if a.dbSvc != nil {
		if err := a.dbSvc.Close(); err != nil {
			a.Log.Warn("Database close failed", "error", err)
		}
	}
	if a.shutdownOtel != nil {
		if err := a.shutdownOtel(ctx); err != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
