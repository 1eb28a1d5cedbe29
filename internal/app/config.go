package app

import (
	"strings"
	"time"

	"github.com/yungbote/slideforge-backend/internal/data/db"
	"github.com/yungbote/slideforge-backend/internal/platform/envutil"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	LogMode     string
	ServiceName string
	Environment string

	DBEnabled bool
	DB        db.Config

	ContentAPIURL     string
	ContentAPIKey     string
	ContentAPITimeout time.Duration
	Concurrency       int
	SlideStructure    string
	SessionIdleTTL    time.Duration

	ThumbnailsEnabled   bool
	ThumbnailMaxRetries int
	ThumbnailBackoff    time.Duration
	ThumbnailFont       string
	ThumbnailBucket     string

	RedisAddr     string
	RedisPassword string
	RedisChannel  string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	AllowedOrigins []string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "slideforge-backend"),
		Environment: envutil.String("APP_ENV", "development"),

		DBEnabled: envutil.Bool("DB_ENABLED", true),
		DB:        db.ConfigFromEnv(),

		ContentAPIURL:     envutil.String("CONTENT_API_URL", ""),
		ContentAPIKey:     envutil.String("CONTENT_API_KEY", ""),
		ContentAPITimeout: envutil.Seconds("CONTENT_API_TIMEOUT_SECONDS", 90*time.Second),
		Concurrency:       envutil.Int("SLIDE_GENERATION_CONCURRENCY", 0),
		SlideStructure:    envutil.String("SLIDE_STRUCTURE", "standard"),
		SessionIdleTTL:    envutil.Seconds("SESSION_IDLE_TTL_SECONDS", 30*time.Minute),

		ThumbnailsEnabled:   envutil.Bool("THUMBNAILS_ENABLED", true),
		ThumbnailMaxRetries: envutil.Int("THUMBNAIL_MAX_RETRIES", 3),
		ThumbnailBackoff:    envutil.Millis("THUMBNAIL_BACKOFF_MS", time.Second),
		ThumbnailFont:       envutil.String("THUMBNAIL_FONT", ""),
		ThumbnailBucket:     envutil.String("THUMBNAIL_GCS_BUCKET_NAME", ""),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisChannel:  envutil.String("REDIS_CHANNEL", ""),

		OpenAIAPIKey:  envutil.String("OPENAI_API_KEY", ""),
		OpenAIBaseURL: envutil.String("OPENAI_BASE_URL", ""),
		OpenAIModel:   envutil.String("OPENAI_MODEL", ""),

		AllowedOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),
	}
	if log != nil {
		log.Info("Config loaded",
			"port", cfg.Port,
			"db_enabled", cfg.DBEnabled,
			"db_driver", cfg.DB.Driver,
			"content_api", cfg.ContentAPIURL != "",
			"concurrency", cfg.Concurrency,
			"thumbnails", cfg.ThumbnailsEnabled,
			"thumbnail_bucket", cfg.ThumbnailBucket,
			"redis", cfg.RedisAddr != "",
			"plan_drafting", cfg.OpenAIAPIKey != "",
		)
	}
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
