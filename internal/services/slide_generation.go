package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/slideforge-backend/internal/data/repos"
	"github.com/yungbote/slideforge-backend/internal/domain/slides"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/content"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/generation"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/plan"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/store"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/thumbnail"
	"github.com/yungbote/slideforge-backend/internal/platform/apierr"
	"github.com/yungbote/slideforge-backend/internal/platform/ctxutil"
	"github.com/yungbote/slideforge-backend/internal/platform/dbctx"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

const (
	persistTimeout = 30 * time.Second

	// DefaultSessionIdleTTL is how long a session with no run and no calls
	// stays in memory.
	DefaultSessionIdleTTL = 30 * time.Minute
)

type StartRunInput struct {
	Plan         any                   `json:"plan"`
	SlideCount   int                   `json:"slideCount"`
	TemplateData slides.TemplateParams `json:"templateData"`
	Language     string                `json:"language,omitempty"`
}

// RunHandle describes a run that has been started in the background.
type RunHandle struct {
	RunID      string                    `json:"runId"`
	LessonID   string                    `json:"lessonId"`
	Slides     []slides.SlideDescription `json:"slides"`
	Source     plan.Source               `json:"source"`
	Validation plan.ValidationResult     `json:"validation"`

	done   chan struct{}
	result generation.Result
}

// Done is closed once the run has settled and been persisted.
func (h *RunHandle) Done() <-chan struct{} { return h.done }

// Result is only meaningful after Done is closed.
func (h *RunHandle) Result() generation.Result {
	<-h.done
	return h.result
}

type SlideGenerationService interface {
	StartRun(ctx context.Context, sessionID string, in StartRunInput) (*RunHandle, error)
	StopRun(sessionID string) bool
	State(sessionID string) (store.State, bool)
	Lesson(ctx context.Context, lessonID string) (*slides.Lesson, error)
	Runs(ctx context.Context, lessonID string) ([]*slides.GenerationRun, error)
	Close()
}

type generationSession struct {
	id          string
	store       *store.LessonSlideStore
	orch        *generation.Orchestrator
	unsubscribe func()

	// lastActive is guarded by slideGenerationService.mu.
	lastActive time.Time
}

type slideGenerationService struct {
	log       *logger.Logger
	parser    *plan.Parser
	generator content.Generator
	thumbs    *thumbnail.Stage
	notifier  SlideNotifier
	lessons   repos.LessonRepo
	runs      repos.GenerationRunRepo
	cfg       generation.Config

	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*generationSession
	stop     chan struct{}
	stopOnce sync.Once
}

type SlideGenerationOption func(*slideGenerationService)

// WithSessionIdleTTL sets how long an idle session is kept. Zero or less
// keeps the default.
func WithSessionIdleTTL(d time.Duration) SlideGenerationOption {
	return func(s *slideGenerationService) {
		if d > 0 {
			s.idleTTL = d
		}
	}
}

// NewSlideGenerationService wires generation sessions. lessons and runs may
// be nil, in which case nothing is persisted.
func NewSlideGenerationService(
	log *logger.Logger,
	parser *plan.Parser,
	generator content.Generator,
	thumbs *thumbnail.Stage,
	notifier SlideNotifier,
	lessons repos.LessonRepo,
	runs repos.GenerationRunRepo,
	cfg generation.Config,
	opts ...SlideGenerationOption,
) SlideGenerationService {
	if log == nil {
		log = logger.Nop()
	}
	if parser == nil {
		parser = plan.NewParser(log)
	}
	if notifier == nil {
		notifier = NewSlideNotifier(nil)
	}
	s := &slideGenerationService{
		log:       log.With("service", "SlideGenerationService"),
		parser:    parser,
		generator: generator,
		thumbs:    thumbs,
		notifier:  notifier,
		lessons:   lessons,
		runs:      runs,
		cfg:       cfg,
		idleTTL:   DefaultSessionIdleTTL,
		now:       time.Now,
		sessions:  map[string]*generationSession{},
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.sweepLoop()
	return s
}

func (s *slideGenerationService) sweepLoop() {
	interval := s.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.sweepIdle(); n > 0 {
				s.log.Debug("evicted idle generation sessions", "count", n)
			}
		}
	}
}

// sweepIdle drops sessions that have no active run and have not been used
// for idleTTL. Their lessons remain available from the lesson repo.
func (s *slideGenerationService) sweepIdle() int {
	cutoff := s.now().Add(-s.idleTTL)
	var evicted []*generationSession
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.lastActive.After(cutoff) || sess.orch.Running() {
			continue
		}
		delete(s.sessions, id)
		evicted = append(evicted, sess)
	}
	s.mu.Unlock()
	for _, sess := range evicted {
		if sess.unsubscribe != nil {
			sess.unsubscribe()
		}
	}
	return len(evicted)
}

func (s *slideGenerationService) touch(sess *generationSession) {
	s.mu.Lock()
	sess.lastActive = s.now()
	s.mu.Unlock()
}

func (s *slideGenerationService) session(id string) *generationSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.lastActive = s.now()
		return sess
	}
	st := store.New()
	sess := &generationSession{
		id:         id,
		store:      st,
		orch:       generation.New(s.log, st, s.generator, s.thumbs, id, s.cfg),
		lastActive: s.now(),
	}
	sess.unsubscribe = st.Subscribe(func(c store.Change) {
		s.notifier.StateChanged(id, c)
	})
	s.sessions[id] = sess
	return sess
}

func (s *slideGenerationService) lookup(id string) (*generationSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if ok {
		sess.lastActive = s.now()
	}
	return sess, ok
}

// StartRun parses the plan and launches a run for the session, superseding
// any run already in progress there. It returns once the lesson shell and
// placeholders are in the store.
func (s *slideGenerationService) StartRun(ctx context.Context, sessionID string, in StartRunInput) (*RunHandle, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apierr.BadRequest("session_id_required", errors.New("session id required"))
	}
	if s.generator == nil {
		return nil, apierr.Unavailable("content_generator_unavailable", errors.New("no content generator configured"))
	}
	n := in.SlideCount
	if n <= 0 {
		n = in.TemplateData.SlideCount
	}
	if err := validSlideCount(n); err != nil {
		return nil, err
	}

	params := in.TemplateData
	params.SlideCount = n
	params.AdditionalInfo = strings.TrimSpace(params.AdditionalInfo)
	params.HasAdditionalInfo = params.AdditionalInfo != ""

	log := s.log.WithTrace(ctx)
	outcome := s.parser.ParseDetailed(in.Plan, n)
	if !outcome.Validation.IsValid {
		log.Warn("plan needed repair",
			"session_id", sessionID,
			"source", outcome.Source,
			"errors", outcome.Validation.Errors,
		)
	}

	sess := s.session(sessionID)
	handle := &RunHandle{
		RunID:      uuid.NewString(),
		Slides:     outcome.Slides,
		Source:     outcome.Source,
		Validation: outcome.Validation,
		done:       make(chan struct{}),
	}
	started := make(chan string, 1)
	cb := s.callbacks(sess, handle, started)

	runCtx := ctxutil.Detach(ctx)
	go func() {
		defer close(handle.done)
		res := sess.orch.Run(runCtx, outcome.Slides, params, cb, in.Language)
		s.finish(sess, handle, res)
		handle.result = res
	}()

	select {
	case id := <-started:
		handle.LessonID = id
	case <-handle.done:
		if res := handle.result; !res.Success {
			return nil, fmt.Errorf("generation run failed: %s", res.Error)
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	log.Info("generation run started",
		"session_id", sessionID,
		"run_id", handle.RunID,
		"lesson_id", handle.LessonID,
		"slides", len(outcome.Slides),
		"source", outcome.Source,
	)
	return handle, nil
}

func (s *slideGenerationService) callbacks(sess *generationSession, h *RunHandle, started chan<- string) *generation.Callbacks {
	return &generation.Callbacks{
		OnStart: func(lesson *slides.Lesson) {
			if lesson == nil {
				return
			}
			s.recordRunStart(sess.id, h.RunID, lesson)
			s.notifier.GenerationStarted(sess.id, h.RunID, lesson)
			started <- lesson.ID
		},
		OnProgressUpdate: func(entries []generation.ProgressEntry) {
			s.notifier.Progress(sess.id, entries)
		},
		OnSlideReady: func(slide slides.Slide, lesson *slides.Lesson) {
			s.notifier.SlideReady(sess.id, slide, lesson)
		},
		OnSlideError: func(message string, slideNumber int) {
			s.notifier.SlideError(sess.id, message, slideNumber)
		},
		OnThumbnailReady: func(slide slides.Slide) {
			s.notifier.ThumbnailReady(sess.id, slide)
		},
		OnComplete: func(lesson *slides.Lesson, stats slides.GenerationStats) {
			s.notifier.Completed(sess.id, h.RunID, lesson, stats)
		},
		OnError: func(message string) {
			s.notifier.Failed(sess.id, h.RunID, message)
		},
	}
}

func (s *slideGenerationService) persistContext() (dbctx.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	return dbctx.Of(ctx), cancel
}

func (s *slideGenerationService) recordRunStart(sessionID, runID string, lesson *slides.Lesson) {
	if s.runs == nil {
		return
	}
	dbc, cancel := s.persistContext()
	defer cancel()
	err := s.runs.Create(dbc, &slides.GenerationRun{
		ID:          runID,
		LessonID:    lesson.ID,
		SessionID:   sessionID,
		Status:      slides.RunStatusRunning,
		TotalSlides: len(lesson.Slides),
		StartedAt:   time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("failed to record generation run", "run_id", runID, "error", err)
	}
}

func runStatus(res generation.Result) slides.RunStatus {
	switch {
	case !res.Success:
		return slides.RunStatusFailed
	case res.Cancelled:
		return slides.RunStatusCancelled
	default:
		return slides.RunStatusCompleted
	}
}

// finish persists the lesson and the run record. A superseded run saves the
// lesson shell it started with since the store now belongs to its successor.
func (s *slideGenerationService) finish(sess *generationSession, h *RunHandle, res generation.Result) {
	defer s.touch(sess)
	dbc, cancel := s.persistContext()
	defer cancel()

	if s.lessons != nil && h.LessonID != "" {
		lesson := res.Lesson
		if live := sess.store.Lesson(); live != nil && live.ID == h.LessonID {
			lesson = live
		}
		if lesson != nil {
			if err := s.lessons.Save(dbc, lesson); err != nil {
				s.log.Error("failed to save lesson", "lesson_id", lesson.ID, "error", err)
			}
		}
	}

	if s.runs == nil || h.LessonID == "" {
		return
	}
	updates := map[string]interface{}{
		"status":      runStatus(res),
		"finished_at": time.Now().UTC(),
	}
	if res.Stats != nil {
		updates["completed_slides"] = res.Stats.CompletedSlides
		updates["failed_slides"] = res.Stats.FailedSlides
		updates["total_time_ms"] = res.Stats.TotalTimeMs
		if raw, err := json.Marshal(res.Stats.Errors); err == nil {
			updates["errors"] = datatypes.JSON(raw)
		}
	}
	if res.Error != "" {
		updates["error"] = res.Error
	}
	if err := s.runs.UpdateFields(dbc, h.RunID, updates); err != nil {
		s.log.Warn("failed to finalize generation run", "run_id", h.RunID, "error", err)
	}
}

func (s *slideGenerationService) StopRun(sessionID string) bool {
	sess, ok := s.lookup(strings.TrimSpace(sessionID))
	if !ok {
		return false
	}
	return sess.orch.Stop()
}

func (s *slideGenerationService) State(sessionID string) (store.State, bool) {
	sess, ok := s.lookup(strings.TrimSpace(sessionID))
	if !ok {
		return store.State{}, false
	}
	return sess.store.GetState(), true
}

// Lesson prefers the stored copy and falls back to a lesson still live in a
// session.
func (s *slideGenerationService) Lesson(ctx context.Context, lessonID string) (*slides.Lesson, error) {
	lessonID = strings.TrimSpace(lessonID)
	if lessonID == "" {
		return nil, apierr.BadRequest("lesson_id_required", errors.New("lesson id required"))
	}
	if s.lessons != nil {
		l, err := s.lessons.GetByID(dbctx.Of(ctx), lessonID)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, repos.ErrNotFound) {
			return nil, err
		}
	}
	s.mu.Lock()
	live := make([]*generationSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()
	for _, sess := range live {
		if l := sess.store.Lesson(); l != nil && l.ID == lessonID {
			return l, nil
		}
	}
	return nil, apierr.NotFound("lesson_not_found", fmt.Errorf("lesson %s not found", lessonID))
}

func (s *slideGenerationService) Runs(ctx context.Context, lessonID string) ([]*slides.GenerationRun, error) {
	if s.runs == nil {
		return []*slides.GenerationRun{}, nil
	}
	return s.runs.ListByLesson(dbctx.Of(ctx), strings.TrimSpace(lessonID))
}

func (s *slideGenerationService) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = map[string]*generationSession{}
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.orch.Stop()
		if sess.unsubscribe != nil {
			sess.unsubscribe()
		}
	}
}
