package generation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/slideforge-backend/internal/domain/slides"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/content"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/store"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/thumbnail"
	"github.com/yungbote/slideforge-backend/internal/platform/pointers"
)

type messageKind int

const (
	msgStarted messageKind = iota
	msgCompleted
	msgFailed
	msgThumbnail
)

// message is how a slide task reports back to the coordinator.
type message struct {
	kind    messageKind
	idx     int
	slide   *content.GeneratedSlide
	slideID string
	url     string
	err     error
	elapsed time.Duration
}

// run is the coordinator-owned bookkeeping for a single Run call. Only the
// coordinator goroutine reads or writes it after the tasks start.
type run struct {
	o     *Orchestrator
	seq   uint64
	cb    *Callbacks
	descs []slides.SlideDescription

	lesson   slides.Lesson
	slideIDs []string
	progress []int

	completed int
	failed    int
	errs      []string
	panelSet  bool

	start time.Time
}

func progressKey(slideNumber int) string { return fmt.Sprintf("slide-%d", slideNumber) }

func (r *run) buildLesson(params slides.TemplateParams, language string) {
	now := r.o.now()
	title := strings.TrimSpace(params.Topic)
	if title == "" {
		title = "Untitled lesson"
	}
	subject := strings.TrimSpace(params.Subject)
	if subject == "" {
		subject = title
	}
	desc := fmt.Sprintf("A %d-slide lesson about %s", len(r.descs), title)
	if ag := strings.TrimSpace(params.AgeGroup); ag != "" {
		desc += " for " + ag
	}
	r.lesson = slides.Lesson{
		ID:                r.o.newID(),
		SessionID:         r.o.sessionID,
		Title:             title,
		Description:       desc,
		Subject:           subject,
		TargetAgeGroup:    strings.TrimSpace(params.AgeGroup),
		EstimatedDuration: slides.EstimatedLessonMinutes(len(r.descs)),
		Language:          language,
		Status:            slides.LessonStatusGenerating,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (r *run) buildPlaceholders() []slides.Slide {
	now := r.o.now()
	r.slideIDs = make([]string, len(r.descs))
	r.progress = make([]int, len(r.descs))
	ph := make([]slides.Slide, len(r.descs))
	for i, d := range r.descs {
		id := "placeholder-" + r.o.newID()
		r.slideIDs[i] = id
		ph[i] = slides.Slide{
			ID:            id,
			LessonID:      r.lesson.ID,
			Position:      i,
			SlideNumber:   d.SlideNumber,
			Title:         d.Title,
			Description:   d.Description,
			Type:          d.Type,
			Status:        slides.SlideStatusPending,
			IsPlaceholder: true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}
	return ph
}

// apply folds one task message into the run. Store writes and the slide
// snapshots handed to callbacks are taken under whileCurrent; a superseded
// run only keeps its own counters and fires no slide callbacks.
func (r *run) apply(m message) {
	d := r.descs[m.idx]
	st := r.o.store
	switch m.kind {
	case msgStarted:
		r.progress[m.idx] = 0
		r.o.whileCurrent(r.seq, func() {
			st.SetSlideGenerationProgress(progressKey(d.SlideNumber), 0)
			st.UpdateSlide(r.slideIDs[m.idx], store.SlidePatch{Status: pointers.Ptr(slides.SlideStatusGenerating)})
		})
		r.reportProgress()

	case msgCompleted:
		r.completed++
		r.progress[m.idx] = 100
		placeholderID := r.slideIDs[m.idx]
		r.slideIDs[m.idx] = m.slideID
		var (
			sl     slides.Slide
			found  bool
			lesson *slides.Lesson
		)
		live := r.o.whileCurrent(r.seq, func() {
			st.SetSlideGenerationProgress(progressKey(d.SlideNumber), 100)
			st.UpdateSlide(placeholderID, completedPatch(m.slideID, m.slide))
			if d.SlideNumber == 1 && !r.panelSet {
				r.panelSet = true
				if !st.GetState().SlidePanelOpen {
					st.SetSlidePanelOpen(true)
				}
			}
			sl, found = r.slideAt(m.idx)
			lesson = st.Lesson()
		})
		if !live {
			return
		}
		r.reportProgress()
		r.o.log.Debug("slide ready", "slide_number", d.SlideNumber, "slide_id", m.slideID, "duration_ms", m.elapsed.Milliseconds())
		if r.cb.OnSlideReady != nil && found {
			r.cb.OnSlideReady(sl, lesson)
		}

	case msgFailed:
		r.failed++
		msg := failureMessage(m.err)
		r.errs = append(r.errs, fmt.Sprintf("Slide %d: %s", d.SlideNumber, msg))
		r.o.log.Warn("slide generation failed", "slide_number", d.SlideNumber, "error", m.err)
		live := r.o.whileCurrent(r.seq, func() {
			st.UpdateSlide(r.slideIDs[m.idx], store.SlidePatch{
				Status: pointers.Ptr(slides.SlideStatusError),
				Error:  pointers.Ptr(msg),
			})
		})
		if live && r.cb.OnSlideError != nil {
			r.cb.OnSlideError(msg, d.SlideNumber)
		}

	case msgThumbnail:
		if m.err != nil {
			if errors.Is(m.err, thumbnail.ErrNoHTML) {
				return
			}
			r.o.log.Warn("thumbnail failed, slide kept", "slide_number", d.SlideNumber, "slide_id", m.slideID, "error", m.err)
			return
		}
		var (
			sl    slides.Slide
			found bool
		)
		live := r.o.whileCurrent(r.seq, func() {
			st.UpdateSlide(m.slideID, store.SlidePatch{ThumbnailURL: pointers.Ptr(m.url)})
			sl, found = r.slideAt(m.idx)
		})
		if live && found && r.cb.OnThumbnailReady != nil {
			r.cb.OnThumbnailReady(sl)
		}
	}
}

func (r *run) slideAt(idx int) (slides.Slide, bool) {
	st := r.o.store.GetState()
	id := r.slideIDs[idx]
	for _, sl := range st.Slides {
		if sl.ID == id {
			return sl, true
		}
	}
	return slides.Slide{}, false
}

func (r *run) reportProgress() {
	if r.cb.OnProgressUpdate == nil {
		return
	}
	entries := make([]ProgressEntry, 0, len(r.descs))
	for i, d := range r.descs {
		entries = append(entries, ProgressEntry{Key: progressKey(d.SlideNumber), SlideNumber: d.SlideNumber, Progress: r.progress[i]})
	}
	sort.SliceStable(entries, func(a, b int) bool { return entries[a].SlideNumber < entries[b].SlideNumber })
	r.cb.OnProgressUpdate(entries)
}

func (r *run) stats() slides.GenerationStats {
	end := r.o.now()
	total := len(r.descs)
	totalMs := end.Sub(r.start).Milliseconds()
	var avg int64
	if total > 0 {
		avg = totalMs / int64(total)
	}
	errs := r.errs
	if errs == nil {
		errs = []string{}
	}
	return slides.GenerationStats{
		TotalSlides:         total,
		CompletedSlides:     r.completed,
		FailedSlides:        r.failed,
		StartTime:           r.start,
		EndTime:             end,
		TotalTimeMs:         totalMs,
		AverageTimePerSlide: avg,
		Errors:              errs,
	}
}

// lessonSnapshot is used when a newer run owns the store.
func (r *run) lessonSnapshot() *slides.Lesson {
	l := r.lesson.Clone()
	return &l
}

func completedPatch(id string, g *content.GeneratedSlide) store.SlidePatch {
	p := store.SlidePatch{
		ID:            pointers.Ptr(id),
		Content:       pointers.Ptr(g.Content),
		Status:        pointers.Ptr(slides.SlideStatusCompleted),
		HTMLContent:   pointers.Ptr(g.HTMLContent),
		PreviewURL:    pointers.Ptr(g.PreviewURL),
		ThumbnailURL:  pointers.Ptr(g.ThumbnailURL),
		IsPlaceholder: pointers.Ptr(false),
		Interactive:   pointers.Ptr(g.Interactive),
		Error:         pointers.Ptr(""),
	}
	if t := strings.TrimSpace(g.Title); t != "" {
		p.Title = pointers.Ptr(t)
	}
	if d := strings.TrimSpace(g.Description); d != "" {
		p.Description = pointers.Ptr(d)
	}
	if g.EstimatedDuration > 0 {
		p.EstimatedDuration = pointers.Ptr(int(g.EstimatedDuration))
	}
	if len(g.VisualElements) > 0 && string(g.VisualElements) != "null" {
		p.VisualElements = []byte(g.VisualElements)
	}
	return p
}

func failureMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return "generation cancelled"
	}
	var ce *content.Error
	if errors.As(err, &ce) && strings.TrimSpace(ce.Message) != "" {
		return ce.Message
	}
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
