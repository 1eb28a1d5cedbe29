package slides

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LessonStatus string

const (
	LessonStatusDraft      LessonStatus = "draft"
	LessonStatusGenerating LessonStatus = "generating"
	LessonStatusReady      LessonStatus = "ready"
)

// TemplateParams are the lesson-level generation parameters forwarded to the
// content API as templateData.
type TemplateParams struct {
	Topic             string `json:"topic" yaml:"topic"`
	AgeGroup          string `json:"ageGroup" yaml:"ageGroup"`
	Subject           string `json:"subject,omitempty" yaml:"subject,omitempty"`
	SlideCount        int    `json:"slideCount" yaml:"slideCount"`
	HasAdditionalInfo bool   `json:"hasAdditionalInfo" yaml:"hasAdditionalInfo"`
	AdditionalInfo    string `json:"additionalInfo,omitempty" yaml:"additionalInfo,omitempty"`
}

type Lesson struct {
	ID                string       `gorm:"type:varchar(64);primaryKey" json:"id"`
	SessionID         string       `gorm:"type:varchar(128);index" json:"sessionId,omitempty"`
	Title             string       `gorm:"column:title;not null" json:"title"`
	Description       string       `gorm:"column:description;type:text" json:"description"`
	Subject           string       `gorm:"column:subject" json:"subject"`
	TargetAgeGroup    string       `gorm:"column:target_age_group" json:"targetAgeGroup"`
	EstimatedDuration int          `gorm:"column:estimated_duration" json:"estimatedDuration"`
	Language          string       `gorm:"column:language" json:"language,omitempty"`
	Status            LessonStatus `gorm:"column:status;not null;index" json:"status"`
	Slides            []Slide      `gorm:"foreignKey:LessonID;references:ID" json:"slides"`
	CreatedAt         time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt         time.Time    `gorm:"not null" json:"updatedAt"`
}

func (Lesson) TableName() string { return "lesson" }

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// Clone copies the lesson and its slides.
func (l Lesson) Clone() Lesson {
	out := l
	if l.Slides != nil {
		out.Slides = make([]Slide, len(l.Slides))
		for i := range l.Slides {
			out.Slides[i] = l.Slides[i].Clone()
		}
	}
	return out
}

// EstimatedLessonMinutes is four minutes per slide rounded to a five minute
// step.
func EstimatedLessonMinutes(slideCount int) int {
	if slideCount <= 0 {
		return 0
	}
	steps := (slideCount*4 + 2) / 5
	return steps * 5
}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// GenerationRun records the outcome of one orchestrator run.
type GenerationRun struct {
	ID              string         `gorm:"type:varchar(64);primaryKey" json:"id"`
	LessonID        string         `gorm:"type:varchar(64);not null;index" json:"lessonId"`
	SessionID       string         `gorm:"type:varchar(128);index" json:"sessionId"`
	Status          RunStatus      `gorm:"column:status;not null;index" json:"status"`
	TotalSlides     int            `gorm:"column:total_slides;not null" json:"totalSlides"`
	CompletedSlides int            `gorm:"column:completed_slides;not null" json:"completedSlides"`
	FailedSlides    int            `gorm:"column:failed_slides;not null" json:"failedSlides"`
	TotalTimeMs     int64          `gorm:"column:total_time_ms" json:"totalTimeMs"`
	Errors          datatypes.JSON `gorm:"column:errors" json:"errors,omitempty"`
	Error           string         `gorm:"column:error;type:text" json:"error,omitempty"`
	StartedAt       time.Time      `gorm:"column:started_at;not null" json:"startedAt"`
	FinishedAt      *time.Time     `gorm:"column:finished_at" json:"finishedAt,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"createdAt"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updatedAt"`
}

func (GenerationRun) TableName() string { return "generation_run" }

func (r *GenerationRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// GenerationStats summarizes a run once every slide task has settled.
type GenerationStats struct {
	TotalSlides         int       `json:"totalSlides"`
	CompletedSlides     int       `json:"completedSlides"`
	FailedSlides        int       `json:"failedSlides"`
	StartTime           time.Time `json:"startTime"`
	EndTime             time.Time `json:"endTime"`
	TotalTimeMs         int64     `json:"totalTimeMs"`
	AverageTimePerSlide int64     `json:"averageTimePerSlide"`
	Errors              []string  `json:"errors"`
}
