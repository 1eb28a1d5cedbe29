package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/slideforge-backend/internal/data/repos/lessons"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

type LessonRepo = lessons.LessonRepo
type GenerationRunRepo = lessons.GenerationRunRepo

var (
	ErrNotFound = lessons.ErrNotFound
	ErrConflict = lessons.ErrConflict
)

type Repos struct {
	Lessons LessonRepo
	Runs    GenerationRunRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Lessons: lessons.NewLessonRepo(db, log),
		Runs:    lessons.NewGenerationRunRepo(db, log),
	}
}
