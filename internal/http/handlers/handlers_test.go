package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/slideforge-backend/internal/domain/slides"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/store"
	"github.com/yungbote/slideforge-backend/internal/platform/apierr"
	"github.com/yungbote/slideforge-backend/internal/platform/llm"
	"github.com/yungbote/slideforge-backend/internal/services"
)

type fakeGeneration struct {
	started  services.StartRunInput
	startErr error
	stopped  string
	state    *store.State
	lesson   *slides.Lesson
}

func (f *fakeGeneration) StartRun(_ context.Context, sessionID string, in services.StartRunInput) (*services.RunHandle, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = in
	return &services.RunHandle{
		RunID:    "run-1",
		LessonID: "lesson-" + sessionID,
		Slides:   []slides.SlideDescription{{SlideNumber: 1, Title: "A", Description: "a", Type: slides.SlideTypeIntroduction}},
	}, nil
}

func (f *fakeGeneration) StopRun(sessionID string) bool {
	f.stopped = sessionID
	return sessionID == "busy"
}

func (f *fakeGeneration) State(string) (store.State, bool) {
	if f.state == nil {
		return store.State{}, false
	}
	return *f.state, true
}

func (f *fakeGeneration) Lesson(_ context.Context, id string) (*slides.Lesson, error) {
	if f.lesson == nil || f.lesson.ID != id {
		return nil, apierr.NotFound("lesson_not_found", errors.New("lesson not found"))
	}
	return f.lesson, nil
}

func (f *fakeGeneration) Runs(context.Context, string) ([]*slides.GenerationRun, error) {
	return []*slides.GenerationRun{{ID: "run-1", Status: slides.RunStatusCompleted}}, nil
}

func (f *fakeGeneration) Close() {}

func newEngine(gen services.SlideGenerationService, plans services.PlanService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if plans != nil {
		ph := NewPlanHandler(plans)
		r.POST("/api/plans/parse", ph.Parse)
		r.POST("/api/plans/draft", ph.Draft)
	}
	if gen != nil {
		sh := NewSessionHandler(gen)
		lh := NewLessonHandler(gen)
		r.POST("/api/sessions/:id/runs", sh.StartRun)
		r.POST("/api/sessions/:id/stop", sh.StopRun)
		r.GET("/api/sessions/:id/state", sh.State)
		r.GET("/api/lessons/:id", lh.GetLesson)
		r.GET("/api/lessons/:id/runs", lh.ListRuns)
	}
	r.GET("/healthcheck", NewHealthHandler().HealthCheck)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestParsePlanAcceptsTextAndObjects(t *testing.T) {
	r := newEngine(nil, services.NewPlanService(nil, nil, nil))
	cases := []struct {
		name string
		body string
		want string
	}{
		{"markdown string", `{"plan":"### Slide 1: Hello\n**Goal:** Greet.","slideCount":2}`, "Hello"},
		{"object", `{"plan":{"slides":[{"title":"Obj","description":"d"}]},"slideCount":2}`, "Obj"},
		{"json in a string", `{"plan":"{\"slides\":[{\"title\":\"Nested\",\"description\":\"d\"}]}","slideCount":2}`, "Nested"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, r, http.MethodPost, "/api/plans/parse", tc.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
			}
			out := decode(t, rec)
			list, _ := out["slides"].([]any)
			if len(list) != 2 {
				t.Fatalf("slides: %v", out["slides"])
			}
			first, _ := list[0].(map[string]any)
			if first["title"] != tc.want {
				t.Fatalf("first title: want=%s got=%v", tc.want, first["title"])
			}
		})
	}
}

func TestParsePlanRejectsBadSlideCount(t *testing.T) {
	r := newEngine(nil, services.NewPlanService(nil, nil, nil))
	rec := do(t, r, http.MethodPost, "/api/plans/parse", `{"plan":"x","slideCount":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", rec.Code)
	}
	errObj, _ := decode(t, rec)["error"].(map[string]any)
	if errObj["code"] != "invalid_slide_count" {
		t.Fatalf("error envelope: %v", errObj)
	}
}

type stubDrafter struct{}

func (stubDrafter) Draft(_ context.Context, in llm.DraftInput) (string, error) {
	return "### Slide 1: " + in.Topic, nil
}

func TestDraftPlan(t *testing.T) {
	rec := do(t, newEngine(nil, services.NewPlanService(nil, nil, nil)), http.MethodPost, "/api/plans/draft",
		map[string]any{"topic": "Moon", "slideCount": 3})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("without drafter: want=503 got=%d", rec.Code)
	}
	rec = do(t, newEngine(nil, services.NewPlanService(nil, nil, stubDrafter{})), http.MethodPost, "/api/plans/draft",
		map[string]any{"topic": "Moon", "slideCount": 3})
	if rec.Code != http.StatusOK || decode(t, rec)["plan"] != "### Slide 1: Moon" {
		t.Fatalf("with drafter: code=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestStartRunReturnsAccepted(t *testing.T) {
	gen := &fakeGeneration{}
	rec := do(t, newEngine(gen, nil), http.MethodPost, "/api/sessions/s1/runs", map[string]any{
		"plan":         map[string]any{"slides": []any{}},
		"slideCount":   4,
		"templateData": map[string]any{"topic": "Bees", "ageGroup": "6-7"},
		"language":     "uk",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: want=202 got=%d body=%s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out["lessonId"] != "lesson-s1" || out["runId"] != "run-1" {
		t.Fatalf("body: %v", out)
	}
	if gen.started.SlideCount != 4 || gen.started.TemplateData.Topic != "Bees" || gen.started.Language != "uk" {
		t.Fatalf("service input: %+v", gen.started)
	}
}

func TestStartRunMapsServiceErrors(t *testing.T) {
	gen := &fakeGeneration{startErr: apierr.BadRequest("invalid_slide_count", errors.New("bad"))}
	rec := do(t, newEngine(gen, nil), http.MethodPost, "/api/sessions/s1/runs", map[string]any{"plan": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", rec.Code)
	}
	gen.startErr = errors.New("db down")
	rec = do(t, newEngine(gen, nil), http.MethodPost, "/api/sessions/s1/runs", map[string]any{"plan": "x"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: want=500 got=%d", rec.Code)
	}
	rec = do(t, newEngine(gen, nil), http.MethodPost, "/api/sessions/s1/runs", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: want=400 got=%d", rec.Code)
	}
}

func TestStopAndState(t *testing.T) {
	gen := &fakeGeneration{}
	r := newEngine(gen, nil)

	rec := do(t, r, http.MethodPost, "/api/sessions/busy/stop", nil)
	if rec.Code != http.StatusOK || decode(t, rec)["stopped"] != true || gen.stopped != "busy" {
		t.Fatalf("stop: code=%d body=%s", rec.Code, rec.Body.String())
	}

	if rec := do(t, r, http.MethodGet, "/api/sessions/idle/state", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session state: want=404 got=%d", rec.Code)
	}
	gen.state = &store.State{IsGenerating: true, SlideGenerationProgress: map[string]int{"slide-1": 0}}
	rec = do(t, r, http.MethodGet, "/api/sessions/idle/state", nil)
	if rec.Code != http.StatusOK || decode(t, rec)["isGenerating"] != true {
		t.Fatalf("state: code=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestLessonEndpoints(t *testing.T) {
	gen := &fakeGeneration{lesson: &slides.Lesson{ID: "l1", Title: "Bees"}}
	r := newEngine(gen, nil)

	if rec := do(t, r, http.MethodGet, "/api/lessons/missing", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing lesson: want=404 got=%d", rec.Code)
	}
	rec := do(t, r, http.MethodGet, "/api/lessons/l1", nil)
	lesson, _ := decode(t, rec)["lesson"].(map[string]any)
	if rec.Code != http.StatusOK || lesson["title"] != "Bees" {
		t.Fatalf("lesson: code=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = do(t, r, http.MethodGet, "/api/lessons/l1/runs", nil)
	runs, _ := decode(t, rec)["runs"].([]any)
	if rec.Code != http.StatusOK || len(runs) != 1 {
		t.Fatalf("runs: code=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHealthCheck(t *testing.T) {
	rec := do(t, newEngine(nil, nil), http.MethodGet, "/healthcheck", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}
}
