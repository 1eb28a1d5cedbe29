package lessons

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/slideforge-backend/internal/domain/slides"
	"github.com/yungbote/slideforge-backend/internal/platform/dbctx"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

type LessonRepo interface {
	// Save upserts the lesson and replaces its slides with lesson.Slides.
	Save(dbc dbctx.Context, lesson *slides.Lesson) error
	GetByID(dbc dbctx.Context, id string) (*slides.Lesson, error)
	ListBySession(dbc dbctx.Context, sessionID string, limit int) ([]*slides.Lesson, error)
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &lessonRepo{
		db:  db,
		log: baseLog.With("repo", "LessonRepo"),
	}
}

func (r *lessonRepo) Save(dbc dbctx.Context, lesson *slides.Lesson) error {
	if lesson == nil || strings.TrimSpace(lesson.ID) == "" {
		return errors.New("lesson id required")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now

	row := *lesson
	row.Slides = nil
	ss := make([]slides.Slide, len(lesson.Slides))
	for i := range lesson.Slides {
		sl := lesson.Slides[i].Clone()
		sl.LessonID = lesson.ID
		sl.Position = i
		if sl.CreatedAt.IsZero() {
			sl.CreatedAt = now
		}
		if sl.UpdatedAt.IsZero() {
			sl.UpdatedAt = now
		}
		ss[i] = sl
	}

	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "description", "subject", "target_age_group",
				"estimated_duration", "language", "status", "updated_at",
			}),
		}).Create(&row).Error; err != nil {
			return err
		}
		if err := txx.Where("lesson_id = ?", lesson.ID).Delete(&slides.Slide{}).Error; err != nil {
			return err
		}
		if len(ss) == 0 {
			return nil
		}
		return txx.Create(&ss).Error
	})
	if err != nil {
		r.log.Warn("lesson save failed", "lesson_id", lesson.ID, "error", err)
		return mapErr(err)
	}
	return nil
}

func (r *lessonRepo) GetByID(dbc dbctx.Context, id string) (*slides.Lesson, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out slides.Lesson
	err := transaction.WithContext(dbc.Ctx).
		Preload("Slides", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&out).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

func (r *lessonRepo) ListBySession(dbc dbctx.Context, sessionID string, limit int) ([]*slides.Lesson, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 20
	}
	var out []*slides.Lesson
	if err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
