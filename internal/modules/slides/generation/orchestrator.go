package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/slideforge-backend/internal/domain/slides"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/content"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/store"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/thumbnail"
	"github.com/yungbote/slideforge-backend/internal/observability"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
	"github.com/yungbote/slideforge-backend/internal/platform/pointers"
)

const defaultLanguage = "en"

var (
	ErrNoSlides   = errors.New("no slide descriptions to generate")
	ErrSuperseded = errors.New("generation run superseded by a newer run")
)

// ProgressEntry is one slide's progress as reported to OnProgressUpdate.
type ProgressEntry struct {
	Key         string `json:"key"`
	SlideNumber int    `json:"slideNumber"`
	Progress    int    `json:"progress"`
}

// Callbacks are invoked from the run's coordinator goroutine, one at a time.
// Any of them may be nil.
type Callbacks struct {
	// OnStart fires once the lesson shell and placeholders are in the store,
	// before any content call is made.
	OnStart          func(lesson *slides.Lesson)
	OnProgressUpdate func(entries []ProgressEntry)
	OnSlideReady     func(slide slides.Slide, lesson *slides.Lesson)
	OnSlideError     func(message string, slideNumber int)
	OnThumbnailReady func(slide slides.Slide)
	OnComplete       func(lesson *slides.Lesson, stats slides.GenerationStats)
	OnError          func(message string)
}

type Result struct {
	Success           bool                      `json:"success"`
	Lesson            *slides.Lesson            `json:"lesson,omitempty"`
	Stats             *slides.GenerationStats   `json:"stats,omitempty"`
	SlideDescriptions []slides.SlideDescription `json:"slideDescriptions,omitempty"`
	Error             string                    `json:"error,omitempty"`
	Cancelled         bool                      `json:"cancelled,omitempty"`
}

type Config struct {
	// Concurrency caps simultaneous content calls. Zero or less runs every
	// slide at once.
	Concurrency    int
	SlideStructure string
}

// Orchestrator drives one generation run at a time against a single store.
// Starting a new run cancels the previous one.
type Orchestrator struct {
	log       *logger.Logger
	store     *store.LessonSlideStore
	generator content.Generator
	thumbs    *thumbnail.Stage
	cfg       Config
	sessionID string
	tracer    trace.Tracer
	metrics   *observability.Metrics

	// writeMu serializes store writes against run hand-over, so a superseded
	// run can never write after its successor has taken the store.
	writeMu sync.Mutex
	mu      sync.Mutex
	runSeq  uint64
	cancel  context.CancelFunc

	now   func() time.Time
	newID func() string
}

func New(log *logger.Logger, st *store.LessonSlideStore, gen content.Generator, thumbs *thumbnail.Stage, sessionID string, cfg Config) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.SlideStructure == "" {
		cfg.SlideStructure = "standard"
	}
	return &Orchestrator{
		log:       log.With("service", "GenerationOrchestrator", "session_id", sessionID),
		store:     st,
		generator: gen,
		thumbs:    thumbs,
		cfg:       cfg,
		sessionID: sessionID,
		tracer:    otel.Tracer("slideforge/generation"),
		metrics:   observability.Current(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (o *Orchestrator) Store() *store.LessonSlideStore { return o.store }

// Stop cancels the active run and clears the generating flag before
// returning. Slides that already completed stay in the store.
func (o *Orchestrator) Stop() bool {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	o.store.SetGenerating(false)
	o.log.Info("generation run stopped")
	return true
}

// Running reports whether a run currently holds the cancellation token.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancel != nil
}

func (o *Orchestrator) begin(parent context.Context) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancel(parent)
	o.writeMu.Lock()
	defer o.writeMu.Unlock()
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.runSeq++
	seq := o.runSeq
	o.cancel = cancel
	o.mu.Unlock()

	return ctx, seq, func() {
		o.mu.Lock()
		if o.runSeq == seq {
			o.cancel = nil
		}
		o.mu.Unlock()
		cancel()
	}
}

// current reports whether seq is still the latest run.
func (o *Orchestrator) current(seq uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runSeq == seq
}

// whileCurrent runs fn with store writes held if seq is still the latest
// run, and reports whether it did. Superseded runs stop writing to the store.
// fn must not call back into the orchestrator.
func (o *Orchestrator) whileCurrent(seq uint64, fn func()) bool {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()
	if !o.current(seq) {
		return false
	}
	fn()
	return true
}

// Run generates every slide in descs, publishing each result into the store
// as it arrives. It returns after all slide tasks have settled.
func (o *Orchestrator) Run(ctx context.Context, descs []slides.SlideDescription, params slides.TemplateParams, cb *Callbacks, language string) Result {
	if cb == nil {
		cb = &Callbacks{}
	}
	runCtx, seq, done := o.begin(ctx)
	defer done()

	descs = append([]slides.SlideDescription(nil), descs...)
	if len(descs) == 0 {
		o.whileCurrent(seq, func() { o.store.SetGenerating(false) })
		o.fireError(cb, ErrNoSlides.Error())
		return Result{Success: false, Error: ErrNoSlides.Error()}
	}
	if strings.TrimSpace(language) == "" {
		language = defaultLanguage
	}

	runCtx, span := o.tracer.Start(runCtx, "slides.generation.run", trace.WithAttributes(
		attribute.String("session.id", o.sessionID),
		attribute.Int("slides.total", len(descs)),
	))
	defer span.End()

	r := &run{
		o:     o,
		seq:   seq,
		cb:    cb,
		descs: descs,
		start: o.now(),
	}
	r.buildLesson(params, language)
	placeholderSlides := r.buildPlaceholders()
	var startLesson *slides.Lesson
	installed := o.whileCurrent(seq, func() {
		o.store.Reset()
		o.store.SetCurrentLesson(&r.lesson)
		o.store.SetGenerating(true)
		o.store.AddSlides(placeholderSlides)
		startLesson = o.store.Lesson()
	})
	if !installed {
		o.log.Info("generation run superseded before start")
		return Result{Success: false, Error: ErrSuperseded.Error(), Cancelled: true, SlideDescriptions: descs}
	}
	if cb.OnStart != nil {
		cb.OnStart(startLesson)
	}

	msgs := make(chan message, len(descs)*3)
	g, gctx := errgroup.WithContext(runCtx)
	if o.cfg.Concurrency > 0 {
		g.SetLimit(o.cfg.Concurrency)
	}

	var waitErr error
	lessonID := r.lesson.ID
	placeholders := append([]string(nil), r.slideIDs...)
	ids := newIDClaims(placeholders)
	go func() {
		for i := range descs {
			i := i
			g.Go(func() error {
				return o.slideTask(gctx, lessonID, i, descs[i], placeholders[i], ids, params, language, msgs)
			})
		}
		waitErr = g.Wait()
		close(msgs)
	}()

	for m := range msgs {
		r.apply(m)
	}

	cancelled := runCtx.Err() != nil && waitErr == nil
	if waitErr != nil {
		msg := fmt.Sprintf("slide generation aborted: %v", waitErr)
		span.RecordError(waitErr)
		span.SetStatus(codes.Error, msg)
		o.log.Error("generation run aborted", "error", waitErr)
		o.metrics.ObserveGenerationRun("aborted", r.completed, r.failed, o.now().Sub(r.start))
		o.whileCurrent(seq, func() { o.store.SetGenerating(false) })
		o.fireError(cb, msg)
		return Result{Success: false, Error: msg, SlideDescriptions: descs}
	}

	stats := r.stats()
	runStatus := "completed"
	if cancelled {
		runStatus = "cancelled"
	}
	o.metrics.ObserveGenerationRun(runStatus, stats.CompletedSlides, stats.FailedSlides, time.Duration(stats.TotalTimeMs)*time.Millisecond)
	span.SetAttributes(
		attribute.Int("slides.completed", stats.CompletedSlides),
		attribute.Int("slides.failed", stats.FailedSlides),
		attribute.Bool("run.cancelled", cancelled),
	)

	lesson := r.lessonSnapshot()
	o.whileCurrent(seq, func() {
		if stats.CompletedSlides > 0 {
			o.store.UpdateLesson(store.LessonPatch{Status: pointers.Ptr(slides.LessonStatusReady)})
		}
		o.store.SetGenerating(false)
		lesson = o.store.Lesson()
	})

	o.log.Info("generation run finished",
		"total", stats.TotalSlides,
		"completed", stats.CompletedSlides,
		"failed", stats.FailedSlides,
		"total_ms", stats.TotalTimeMs,
		"cancelled", cancelled,
	)
	if cb.OnComplete != nil {
		cb.OnComplete(lesson, stats)
	}
	return Result{
		Success:           true,
		Lesson:            lesson,
		Stats:             &stats,
		SlideDescriptions: descs,
		Cancelled:         cancelled,
	}
}

func (o *Orchestrator) fireError(cb *Callbacks, msg string) {
	if cb.OnError != nil {
		cb.OnError(msg)
	}
}

// slideTask is the only code that runs off the coordinator goroutine. It
// reports through msgs and never touches the store.
func (o *Orchestrator) slideTask(
	ctx context.Context,
	lessonID string,
	idx int,
	d slides.SlideDescription,
	placeholderID string,
	ids *idClaims,
	params slides.TemplateParams,
	language string,
	msgs chan<- message,
) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("slide %d task panicked: %v", d.SlideNumber, rec)
		}
	}()

	ctx, span := o.tracer.Start(ctx, "slides.generation.slide", trace.WithAttributes(
		attribute.Int("slide.number", d.SlideNumber),
		attribute.String("slide.type", string(d.Type)),
	))
	defer span.End()

	msgs <- message{kind: msgStarted, idx: idx}

	start := o.now()
	gen, genErr := o.generator.GenerateSlide(ctx, content.Request{
		SlideNumber:    d.SlideNumber,
		Title:          d.Title,
		Description:    d.Description,
		Type:           d.Type,
		TemplateData:   params,
		SessionID:      o.sessionID,
		Language:       language,
		SlideStructure: o.cfg.SlideStructure,
	})
	if genErr == nil && gen == nil {
		genErr = &content.Error{Message: "content api returned no slide"}
	}
	if genErr == nil && slides.SlideStatus(gen.Status) == slides.SlideStatusError {
		genErr = &content.Error{Message: "content api returned the slide in error state"}
	}
	if genErr != nil {
		span.RecordError(genErr)
		span.SetStatus(codes.Error, genErr.Error())
		msgs <- message{kind: msgFailed, idx: idx, err: genErr, elapsed: o.now().Sub(start)}
		return nil
	}

	finalID := strings.TrimSpace(gen.ID)
	if finalID == "" {
		finalID = placeholderID
	} else if finalID != placeholderID && !ids.claim(finalID) {
		o.log.Warn("content api returned a duplicate slide id, keeping placeholder id",
			"slide_number", d.SlideNumber, "slide_id", finalID, "placeholder_id", placeholderID)
		finalID = placeholderID
	}
	msgs <- message{kind: msgCompleted, idx: idx, slide: gen, slideID: finalID, elapsed: o.now().Sub(start)}

	if o.thumbs == nil {
		return nil
	}
	if strings.TrimSpace(gen.HTMLContent) == "" {
		o.log.Debug("slide has no html, skipping thumbnail", "slide_number", d.SlideNumber)
		return nil
	}
	url, thumbErr := o.thumbs.Thumbnail(ctx, lessonID, finalID, gen.HTMLContent, d.SlideNumber)
	msgs <- message{kind: msgThumbnail, idx: idx, slideID: finalID, url: url, err: thumbErr}
	return nil
}

// idClaims tracks the slide ids taken within one run.
type idClaims struct {
	mu    sync.Mutex
	taken map[string]struct{}
}

func newIDClaims(initial []string) *idClaims {
	c := &idClaims{taken: make(map[string]struct{}, len(initial)*2)}
	for _, id := range initial {
		c.taken[id] = struct{}{}
	}
	return c
}

// claim reserves id and reports false if another slide already holds it.
func (c *idClaims) claim(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.taken[id]; ok {
		return false
	}
	c.taken[id] = struct{}{}
	return true
}
