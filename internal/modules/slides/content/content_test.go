package content

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/slideforge-backend/internal/domain/slides"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, url string, timeout time.Duration) *HTTPClient {
	t.Helper()
	c, err := NewHTTPClient(logger.Nop(), HTTPClientConfig{URL: url, APIKey: "k-1", Timeout: timeout})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	return c
}

func TestHTTPClientSendsRequestAndDecodesSlide(t *testing.T) {
	var got Request
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"slide":{"id":"s-9","title":"Roots","content":"c","htmlContent":"<h1>Roots</h1>","status":"completed","estimatedDuration":"4 min"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second)
	sl, err := c.GenerateSlide(context.Background(), Request{
		SlideNumber:  2,
		Title:        "Roots",
		Description:  "What roots do",
		Type:         slides.SlideTypeContent,
		TemplateData: slides.TemplateParams{Topic: "Plants", SlideCount: 4},
		SessionID:    "sess",
		Language:     "en",
	})
	if err != nil {
		t.Fatalf("GenerateSlide: %v", err)
	}
	if auth != "Bearer k-1" {
		t.Fatalf("auth header: got=%q", auth)
	}
	if got.SlideNumber != 2 || got.TemplateData.Topic != "Plants" || got.SessionID != "sess" {
		t.Fatalf("request body: %+v", got)
	}
	if sl.ID != "s-9" || sl.HTMLContent != "<h1>Roots</h1>" || int(sl.EstimatedDuration) != 4 {
		t.Fatalf("slide: %+v", sl)
	}
}

func TestHTTPClientSurfacesServerMessage(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"string error", 500, `{"success":false,"error":"model overloaded"}`, "model overloaded"},
		{"object error", 422, `{"error":{"message":"bad slide"}}`, "bad slide"},
		{"message field", 200, `{"success":false,"message":"quota exceeded"}`, "quota exceeded"},
		{"no body", 502, ``, "slide generation failed (HTTP 502)"},
		{"success without slide", 200, `{"success":true}`, "slide generation failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL, time.Second).GenerateSlide(context.Background(), Request{SlideNumber: 1})
			var ce *Error
			if !errors.As(err, &ce) {
				t.Fatalf("want *Error, got %T (%v)", err, err)
			}
			if ce.Message != tc.want || ce.StatusCode != tc.status {
				t.Fatalf("error: want=%q/%d got=%q/%d", tc.want, tc.status, ce.Message, ce.StatusCode)
			}
		})
	}
}

func TestHTTPClientTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestClient(t, srv.URL, 50*time.Millisecond).GenerateSlide(context.Background(), Request{SlideNumber: 1})
	var ce *Error
	if !errors.As(err, &ce) || !strings.Contains(ce.Message, "timed out") {
		t.Fatalf("want timeout error, got %v", err)
	}
}

func TestHTTPClientHonoursCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := newTestClient(t, srv.URL, 0).GenerateSlide(ctx, Request{SlideNumber: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestNewHTTPClientRequiresURL(t *testing.T) {
	if _, err := NewHTTPClient(logger.Nop(), HTTPClientConfig{}); err == nil {
		t.Fatalf("want error for empty url")
	}
}

func TestLocalGeneratorRendersMarkdown(t *testing.T) {
	g := NewLocalGenerator(nil)
	sl, err := g.GenerateSlide(context.Background(), Request{
		SlideNumber: 3,
		Title:       "Sort the seeds",
		Description: "Group the seeds by **size**.\n\n- small\n- large",
		Type:        slides.SlideTypeActivity,
	})
	if err != nil {
		t.Fatalf("GenerateSlide: %v", err)
	}
	if sl.ID == "" || sl.Status != string(slides.SlideStatusCompleted) || !sl.Interactive {
		t.Fatalf("slide: %+v", sl)
	}
	for _, want := range []string{"<strong>size</strong>", "<li>small</li>", "Sort the seeds", `data-slide-number="3"`, "slide-activity"} {
		if !strings.Contains(sl.HTMLContent, want) {
			t.Fatalf("html missing %q:\n%s", want, sl.HTMLContent)
		}
	}
}

func TestLocalGeneratorRejectsEmptyDescription(t *testing.T) {
	_, err := NewLocalGenerator(nil).GenerateSlide(context.Background(), Request{SlideNumber: 1, Title: "x"})
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("want *Error, got %v", err)
	}
}

func TestFlexInt(t *testing.T) {
	cases := map[string]int{`5`: 5, `5.7`: 5, `"6"`: 6, `"8 min"`: 8, `null`: 0, `"soon"`: 0}
	for in, want := range cases {
		var f FlexInt
		if err := json.Unmarshal([]byte(in), &f); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if int(f) != want {
			t.Fatalf("FlexInt(%s): want=%d got=%d", in, want, int(f))
		}
	}
}
