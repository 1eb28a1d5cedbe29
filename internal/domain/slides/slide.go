package slides

import (
	"time"

	"gorm.io/datatypes"
)

type SlideType string

const (
	SlideTypeIntroduction SlideType = "introduction"
	SlideTypeContent      SlideType = "content"
	SlideTypeActivity     SlideType = "activity"
	SlideTypeSummary      SlideType = "summary"
)

type SlideStatus string

const (
	SlideStatusPending    SlideStatus = "pending"
	SlideStatusGenerating SlideStatus = "generating"
	SlideStatusCompleted  SlideStatus = "completed"
	SlideStatusError      SlideStatus = "error"
)

// SlideDescription is the normalized unit of work derived from a plan.
type SlideDescription struct {
	SlideNumber int       `json:"slideNumber" yaml:"slideNumber"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Type        SlideType `json:"type" yaml:"type"`
}

// Slide is one slide's generation record. The same struct backs the live
// store and the slide table, keyed by (lesson_id, id) since content API ids
// are only unique within a lesson.
type Slide struct {
	ID                string         `gorm:"type:varchar(128);primaryKey" json:"id"`
	LessonID          string         `gorm:"type:varchar(64);primaryKey" json:"lessonId"`
	Position          int            `gorm:"column:position;not null" json:"position"`
	SlideNumber       int            `gorm:"column:slide_number;not null" json:"slideNumber"`
	Title             string         `gorm:"column:title;not null" json:"title"`
	Description       string         `gorm:"column:description;type:text" json:"description,omitempty"`
	Content           string         `gorm:"column:content;type:text" json:"content,omitempty"`
	Type              SlideType      `gorm:"column:type;not null" json:"type"`
	Status            SlideStatus    `gorm:"column:status;not null;index" json:"status"`
	HTMLContent       string         `gorm:"column:html_content;type:text" json:"htmlContent,omitempty"`
	PreviewURL        string         `gorm:"column:preview_url;type:text" json:"previewUrl,omitempty"`
	ThumbnailURL      string         `gorm:"column:thumbnail_url;type:text" json:"thumbnailUrl,omitempty"`
	IsPlaceholder     bool           `gorm:"column:is_placeholder;not null" json:"isPlaceholder"`
	EstimatedDuration int            `gorm:"column:estimated_duration" json:"estimatedDuration,omitempty"`
	Interactive       bool           `gorm:"column:interactive" json:"interactive,omitempty"`
	VisualElements    datatypes.JSON `gorm:"column:visual_elements" json:"visualElements,omitempty"`
	Error             string         `gorm:"column:error;type:text" json:"error,omitempty"`
	CreatedAt         time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updatedAt"`
}

func (Slide) TableName() string { return "slide" }

// Clone returns a copy that shares no mutable memory with s.
func (s Slide) Clone() Slide {
	out := s
	if s.VisualElements != nil {
		out.VisualElements = append(datatypes.JSON(nil), s.VisualElements...)
	}
	return out
}
