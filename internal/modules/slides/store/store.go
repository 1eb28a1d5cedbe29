package store

import (
	"sync"
	"time"

	"github.com/yungbote/slideforge-backend/internal/domain/slides"
)

// State is a point-in-time copy of the store. Mutating it has no effect on
// the store.
type State struct {
	CurrentLesson           *slides.Lesson `json:"currentLesson"`
	Slides                  []slides.Slide `json:"slides"`
	IsGenerating            bool           `json:"isGenerating"`
	SlideGenerationProgress map[string]int `json:"slideGenerationProgress"`
	SlidePanelOpen          bool           `json:"slidePanelOpen"`
	Version                 uint64         `json:"version"`
}

type ChangeKind string

const (
	ChangeReset      ChangeKind = "reset"
	ChangeLesson     ChangeKind = "lesson"
	ChangeGenerating ChangeKind = "generating"
	ChangeSlides     ChangeKind = "slides_added"
	ChangeSlide      ChangeKind = "slide_updated"
	ChangeProgress   ChangeKind = "progress"
	ChangePanel      ChangeKind = "panel"
)

// Change is delivered to subscribers after every mutation.
type Change struct {
	Kind    ChangeKind
	SlideID string
	Key     string
	Version uint64
}

type Listener func(Change)

// SlidePatch holds the fields to overwrite on a slide. Nil fields are left
// alone; a non-nil ID renames the slide (placeholder to real id).
type SlidePatch struct {
	ID                *string
	Title             *string
	Content           *string
	Description       *string
	Status            *slides.SlideStatus
	HTMLContent       *string
	PreviewURL        *string
	ThumbnailURL      *string
	IsPlaceholder     *bool
	EstimatedDuration *int
	Interactive       *bool
	VisualElements    []byte
	Error             *string
}

type LessonPatch struct {
	Title       *string
	Description *string
	Status      *slides.LessonStatus
}

// LessonSlideStore is the observable lesson state a generation run publishes
// into. Writes are applied under a lock and are visible to the next
// GetState call.
type LessonSlideStore struct {
	mu    sync.RWMutex
	state State

	subsMu sync.RWMutex
	subs   map[int]Listener
	nextID int

	now func() time.Time
}

func New() *LessonSlideStore {
	return &LessonSlideStore{
		state: State{SlideGenerationProgress: map[string]int{}},
		subs:  map[int]Listener{},
		now:   time.Now,
	}
}

// Subscribe registers l for change notifications. Listeners run on the
// writer's goroutine after the lock is released.
func (s *LessonSlideStore) Subscribe(l Listener) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = l
	s.subsMu.Unlock()
	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *LessonSlideStore) Reset() {
	s.mutate(Change{Kind: ChangeReset}, func(st *State) bool {
		*st = State{SlideGenerationProgress: map[string]int{}, Version: st.Version}
		return true
	})
}

func (s *LessonSlideStore) SetCurrentLesson(lesson *slides.Lesson) {
	s.mutate(Change{Kind: ChangeLesson}, func(st *State) bool {
		if lesson == nil {
			st.CurrentLesson = nil
			return true
		}
		cp := lesson.Clone()
		cp.Slides = nil
		st.CurrentLesson = &cp
		return true
	})
}

func (s *LessonSlideStore) SetGenerating(v bool) {
	s.mutate(Change{Kind: ChangeGenerating}, func(st *State) bool {
		st.IsGenerating = v
		return true
	})
}

func (s *LessonSlideStore) AddSlides(in []slides.Slide) {
	if len(in) == 0 {
		return
	}
	s.mutate(Change{Kind: ChangeSlides}, func(st *State) bool {
		now := s.now()
		for _, sl := range in {
			cp := sl.Clone()
			if cp.UpdatedAt.IsZero() {
				cp.UpdatedAt = now
			}
			st.Slides = append(st.Slides, cp)
		}
		return true
	})
}

// UpdateSlide applies patch to the slide with id and reports whether it
// existed. The slide keeps its position.
func (s *LessonSlideStore) UpdateSlide(id string, patch SlidePatch) bool {
	found := false
	change := Change{Kind: ChangeSlide, SlideID: id}
	s.mutate(change, func(st *State) bool {
		for i := range st.Slides {
			if st.Slides[i].ID != id {
				continue
			}
			applySlidePatch(&st.Slides[i], patch)
			st.Slides[i].UpdatedAt = s.now()
			found = true
			return true
		}
		return false
	})
	return found
}

func (s *LessonSlideStore) UpdateLesson(patch LessonPatch) {
	s.mutate(Change{Kind: ChangeLesson}, func(st *State) bool {
		if st.CurrentLesson == nil {
			return false
		}
		if patch.Title != nil {
			st.CurrentLesson.Title = *patch.Title
		}
		if patch.Description != nil {
			st.CurrentLesson.Description = *patch.Description
		}
		if patch.Status != nil {
			st.CurrentLesson.Status = *patch.Status
		}
		st.CurrentLesson.UpdatedAt = s.now()
		return true
	})
}

func (s *LessonSlideStore) SetSlideGenerationProgress(key string, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	s.mutate(Change{Kind: ChangeProgress, Key: key}, func(st *State) bool {
		st.SlideGenerationProgress[key] = percent
		return true
	})
}

func (s *LessonSlideStore) SetSlidePanelOpen(open bool) {
	s.mutate(Change{Kind: ChangePanel}, func(st *State) bool {
		if st.SlidePanelOpen == open {
			return false
		}
		st.SlidePanelOpen = open
		return true
	})
}

func (s *LessonSlideStore) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Lesson returns the current lesson with the slide list attached, or nil.
func (s *LessonSlideStore) Lesson() *slides.Lesson {
	st := s.GetState()
	if st.CurrentLesson == nil {
		return nil
	}
	l := *st.CurrentLesson
	l.Slides = st.Slides
	return &l
}

func (s *LessonSlideStore) snapshotLocked() State {
	out := State{
		IsGenerating:            s.state.IsGenerating,
		SlidePanelOpen:          s.state.SlidePanelOpen,
		Version:                 s.state.Version,
		SlideGenerationProgress: make(map[string]int, len(s.state.SlideGenerationProgress)),
		Slides:                  make([]slides.Slide, len(s.state.Slides)),
	}
	if s.state.CurrentLesson != nil {
		l := s.state.CurrentLesson.Clone()
		out.CurrentLesson = &l
	}
	for k, v := range s.state.SlideGenerationProgress {
		out.SlideGenerationProgress[k] = v
	}
	for i := range s.state.Slides {
		out.Slides[i] = s.state.Slides[i].Clone()
	}
	return out
}

func (s *LessonSlideStore) mutate(change Change, fn func(st *State) bool) {
	s.mu.Lock()
	changed := fn(&s.state)
	if changed {
		s.state.Version++
		change.Version = s.state.Version
	}
	s.mu.Unlock()
	if changed {
		s.notify(change)
	}
}

func (s *LessonSlideStore) notify(c Change) {
	s.subsMu.RLock()
	listeners := make([]Listener, 0, len(s.subs))
	for _, l := range s.subs {
		listeners = append(listeners, l)
	}
	s.subsMu.RUnlock()
	for _, l := range listeners {
		l(c)
	}
}

func applySlidePatch(sl *slides.Slide, p SlidePatch) {
	if p.ID != nil && *p.ID != "" {
		sl.ID = *p.ID
	}
	if p.Title != nil {
		sl.Title = *p.Title
	}
	if p.Content != nil {
		sl.Content = *p.Content
	}
	if p.Description != nil {
		sl.Description = *p.Description
	}
	if p.Status != nil {
		sl.Status = *p.Status
	}
	if p.HTMLContent != nil {
		sl.HTMLContent = *p.HTMLContent
	}
	if p.PreviewURL != nil {
		sl.PreviewURL = *p.PreviewURL
	}
	if p.ThumbnailURL != nil {
		sl.ThumbnailURL = *p.ThumbnailURL
	}
	if p.IsPlaceholder != nil {
		sl.IsPlaceholder = *p.IsPlaceholder
	}
	if p.EstimatedDuration != nil {
		sl.EstimatedDuration = *p.EstimatedDuration
	}
	if p.Interactive != nil {
		sl.Interactive = *p.Interactive
	}
	if p.VisualElements != nil {
		sl.VisualElements = append([]byte(nil), p.VisualElements...)
	}
	if p.Error != nil {
		sl.Error = *p.Error
	}
}
