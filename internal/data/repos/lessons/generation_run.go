package lessons

import (
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/slideforge-backend/internal/domain/slides"
	"github.com/yungbote/slideforge-backend/internal/platform/dbctx"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

type GenerationRunRepo interface {
	Create(dbc dbctx.Context, run *slides.GenerationRun) error
	UpdateFields(dbc dbctx.Context, id string, updates map[string]interface{}) error
	GetByID(dbc dbctx.Context, id string) (*slides.GenerationRun, error)
	ListByLesson(dbc dbctx.Context, lessonID string) ([]*slides.GenerationRun, error)
}

type generationRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationRunRepo(db *gorm.DB, baseLog *logger.Logger) GenerationRunRepo {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &generationRunRepo{
		db:  db,
		log: baseLog.With("repo", "GenerationRunRepo"),
	}
}

func (r *generationRunRepo) Create(dbc dbctx.Context, run *slides.GenerationRun) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	run.UpdatedAt = now
	return mapErr(transaction.WithContext(dbc.Ctx).Create(run).Error)
}

func (r *generationRunRepo) UpdateFields(dbc dbctx.Context, id string, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&slides.GenerationRun{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *generationRunRepo) GetByID(dbc dbctx.Context, id string) (*slides.GenerationRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out slides.GenerationRun
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

func (r *generationRunRepo) ListByLesson(dbc dbctx.Context, lessonID string) ([]*slides.GenerationRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*slides.GenerationRun
	if err := transaction.WithContext(dbc.Ctx).
		Where("lesson_id = ?", lessonID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
