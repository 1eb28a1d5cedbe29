package http

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/slideforge-backend/internal/data/repos"
	"github.com/yungbote/slideforge-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/slideforge-backend/internal/http/handlers"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/content"
	"github.com/yungbote/slideforge-backend/internal/modules/slides/generation"
	"github.com/yungbote/slideforge-backend/internal/observability"
	"github.com/yungbote/slideforge-backend/internal/realtime"
	"github.com/yungbote/slideforge-backend/internal/services"
)

func TestRouterRunStreamsAndPersists(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := testutil.Logger(t)
	r := repos.New(testutil.DB(t), log)
	hub := realtime.NewSSEHub(log)
	gen := services.NewSlideGenerationService(log, nil, content.NewLocalGenerator(log), nil,
		services.NewSlideNotifier(&services.HubEmitter{Hub: hub}), r.Lessons, r.Runs, generation.Config{})
	t.Cleanup(gen.Close)

	srv := httptest.NewServer(NewRouter(RouterConfig{
		Log:             log,
		HealthHandler:   httpH.NewHealthHandler(),
		PlanHandler:     httpH.NewPlanHandler(services.NewPlanService(log, nil, nil)),
		SessionHandler:  httpH.NewSessionHandler(gen),
		LessonHandler:   httpH.NewLessonHandler(gen),
		RealtimeHandler: httpH.NewRealtimeHandler(log, hub),
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	streamReq, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/sessions/room-7/stream", nil)
	stream, err := http.DefaultClient.Do(streamReq)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer stream.Body.Close()
	deadline := time.Now().Add(5 * time.Second)
	for hub.Subscribers(realtime.SessionChannel("room-7")) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	body := `{"plan":"### Slide 1: Start\n**Goal:** Begin.\n\n### Slide 2: End\n**Goal:** Finish.","slideCount":2,"templateData":{"topic":"Clouds"}}`
	resp, err := http.Post(srv.URL+"/api/sessions/room-7/runs", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	var started struct {
		LessonID string `json:"lessonId"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&started)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted || started.LessonID == "" {
		t.Fatalf("start run: status=%d lesson=%q", resp.StatusCode, started.LessonID)
	}

	completed := make(chan struct{})
	go func() {
		sc := bufio.NewScanner(stream.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for sc.Scan() {
			line := sc.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var msg realtime.SSEMessage
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg) == nil &&
				msg.Event == realtime.SSEEventSlideGenerationCompleted {
				close(completed)
				return
			}
		}
	}()
	select {
	case <-completed:
	case <-time.After(10 * time.Second):
		t.Fatalf("no completion event on the stream")
	}

	var lesson struct {
		Lesson struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Slides []struct {
				Status string `json:"status"`
			} `json:"slides"`
		} `json:"lesson"`
	}
	deadline = time.Now().Add(5 * time.Second)
	for {
		resp, err = http.Get(srv.URL + "/api/lessons/" + started.LessonID)
		if err != nil {
			t.Fatalf("get lesson: %v", err)
		}
		_ = json.NewDecoder(resp.Body).Decode(&lesson)
		resp.Body.Close()
		if lesson.Lesson.Status == "ready" || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if lesson.Lesson.ID != started.LessonID || lesson.Lesson.Status != "ready" || len(lesson.Lesson.Slides) != 2 {
		t.Fatalf("lesson: %+v", lesson.Lesson)
	}
	for i, sl := range lesson.Lesson.Slides {
		if sl.Status != "completed" {
			t.Fatalf("slide %d status: %s", i, sl.Status)
		}
	}
}

func TestRouterServesMetricsWhenEnabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.New()
	srv := httptest.NewServer(NewRouter(RouterConfig{
		Log:           testutil.Logger(t),
		Metrics:       m,
		HealthHandler: httpH.NewHealthHandler(),
	}))
	defer srv.Close()

	if resp, err := http.Get(srv.URL + "/healthcheck"); err == nil {
		resp.Body.Close()
	}
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(raw), `route="/healthcheck",status="200"} 1`) {
		t.Fatalf("metrics: status=%d body=%s", resp.StatusCode, raw)
	}

	bare := httptest.NewServer(NewRouter(RouterConfig{Log: testutil.Logger(t)}))
	defer bare.Close()
	resp2, err := http.Get(bare.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("metrics route should be absent when disabled, got %d", resp2.StatusCode)
	}
}
