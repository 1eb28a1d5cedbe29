package services

import (
	"context"

	"github.com/yungbote/slideforge-backend/internal/domain/slides"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/generation"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/store"
	"github.com/yungbote/slideforge-backend/internal/realtime"
)

// SlideNotifier turns generation callbacks and store changes into SSE
// messages on the session channel.
type SlideNotifier interface {
	GenerationStarted(sessionID, runID string, lesson *slides.Lesson)
	Progress(sessionID string, entries []generation.ProgressEntry)
	SlideReady(sessionID string, slide slides.Slide, lesson *slides.Lesson)
	SlideError(sessionID, message string, slideNumber int)
	ThumbnailReady(sessionID string, slide slides.Slide)
	Completed(sessionID, runID string, lesson *slides.Lesson, stats slides.GenerationStats)
	Failed(sessionID, runID, message string)
	StateChanged(sessionID string, change store.Change)
}

type slideNotifier struct {
	emitter SSEEmitter
}

func NewSlideNotifier(emitter SSEEmitter) SlideNotifier {
	if emitter == nil {
		emitter = nopEmitter{}
	}
	return &slideNotifier{emitter: emitter}
}

func (n *slideNotifier) emit(sessionID string, event realtime.SSEEvent, data map[string]any) {
	n.emitter.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.SessionChannel(sessionID),
		Event:   event,
		Data:    data,
	})
}

func (n *slideNotifier) GenerationStarted(sessionID, runID string, lesson *slides.Lesson) {
	n.emit(sessionID, realtime.SSEEventSlideGenerationStarted, map[string]any{
		"run_id": runID,
		"lesson": lesson,
	})
}

func (n *slideNotifier) Progress(sessionID string, entries []generation.ProgressEntry) {
	n.emit(sessionID, realtime.SSEEventSlideGenerationProgress, map[string]any{
		"progress": entries,
	})
}

func (n *slideNotifier) SlideReady(sessionID string, slide slides.Slide, lesson *slides.Lesson) {
	data := map[string]any{"slide": slide}
	if lesson != nil {
		data["lesson_id"] = lesson.ID
	}
	n.emit(sessionID, realtime.SSEEventSlideReady, data)
}

func (n *slideNotifier) SlideError(sessionID, message string, slideNumber int) {
	n.emit(sessionID, realtime.SSEEventSlideError, map[string]any{
		"slide_number": slideNumber,
		"error":        message,
	})
}

func (n *slideNotifier) ThumbnailReady(sessionID string, slide slides.Slide) {
	n.emit(sessionID, realtime.SSEEventSlideThumbnailReady, map[string]any{
		"slide_id":      slide.ID,
		"slide_number":  slide.SlideNumber,
		"thumbnail_url": slide.ThumbnailURL,
	})
}

func (n *slideNotifier) Completed(sessionID, runID string, lesson *slides.Lesson, stats slides.GenerationStats) {
	n.emit(sessionID, realtime.SSEEventSlideGenerationCompleted, map[string]any{
		"run_id": runID,
		"lesson": lesson,
		"stats":  stats,
	})
}

func (n *slideNotifier) Failed(sessionID, runID, message string) {
	n.emit(sessionID, realtime.SSEEventSlideGenerationFailed, map[string]any{
		"run_id": runID,
		"error":  message,
	})
}

func (n *slideNotifier) StateChanged(sessionID string, change store.Change) {
	data := map[string]any{
		"kind":    change.Kind,
		"version": change.Version,
	}
	if change.SlideID != "" {
		data["slide_id"] = change.SlideID
	}
	if change.Key != "" {
		data["key"] = change.Key
	}
	n.emit(sessionID, realtime.SSEEventLessonStateChanged, data)
}
