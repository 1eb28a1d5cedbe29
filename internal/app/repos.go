package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/slideforge-backend/internal/data/db"
	"github.com/yungbote/slideforge-backend/internal/data/repos"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

// wireDatabase opens and migrates the database. It returns nil when
// persistence is disabled.
func wireDatabase(log *logger.Logger, cfg Config) (*db.Service, error) {
	if !cfg.DBEnabled {
		log.Warn("DB_ENABLED=false; lessons and runs will not be persisted")
		return nil, nil
	}
	svc, err := db.Open(log, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrateAll(svc.DB()); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return svc, nil
}

func wireRepos(theDB *gorm.DB, log *logger.Logger) repos.Repos {
	if theDB == nil {
		return repos.Repos{}
	}
	log.Info("Wiring repos...")
	return repos.New(theDB, log)
}
