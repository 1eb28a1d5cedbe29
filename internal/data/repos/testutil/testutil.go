package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/slideforge-backend/internal/data/db"
	"github.com/yungbote/slideforge-backend/internal/domain/slides"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB opens a private in-memory sqlite database with every table migrated.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrateAll(gdb); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID string, slideCount int) *slides.Lesson {
	tb.Helper()
	now := time.Now().UTC()
	l := &slides.Lesson{
		ID:                uuid.NewString(),
		SessionID:         sessionID,
		Title:             "Seeds",
		Subject:           "Biology",
		EstimatedDuration: slides.EstimatedLessonMinutes(slideCount),
		Status:            slides.LessonStatusReady,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := tx.WithContext(ctx).Omit("Slides").Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	for i := 0; i < slideCount; i++ {
		sl := slides.Slide{
			ID:          uuid.NewString(),
			LessonID:    l.ID,
			Position:    i,
			SlideNumber: i + 1,
			Title:       fmt.Sprintf("Slide %d", i+1),
			Type:        slides.SlideTypeContent,
			Status:      slides.SlideStatusCompleted,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&sl).Error; err != nil {
			tb.Fatalf("seed slide: %v", err)
		}
		l.Slides = append(l.Slides, sl)
	}
	return l
}
