package logger

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/slideforge-backend/internal/platform/ctxutil"
)

func TestSanitizeWith(t *testing.T) {
	cfg := redactConfig{enabled: true, salt: "pepper"}
	out := sanitizeWith(cfg, []interface{}{
		"content_api_key", "abc",
		"Authorization", "Bearer xyz",
		"session_id", "s-1",
		"note", "sk-live-123",
		"slide_number", 3,
		"payload", map[string]interface{}{"password": "p", "title": "Seeds"},
		"dangling",
	})

	want := map[string]interface{}{
		"content_api_key": redacted,
		"Authorization":   redacted,
		"note":            redacted,
		"slide_number":    3,
	}
	got := map[string]interface{}{}
	for i := 0; i+1 < len(out); i += 2 {
		got[out[i].(string)] = out[i+1]
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s: want=%v got=%v", k, v, got[k])
		}
	}
	if h, _ := got["session_id"].(string); !strings.HasPrefix(h, "hash:") || len(h) != len("hash:")+12 {
		t.Fatalf("session_id should be hashed, got %v", got["session_id"])
	}
	if h := cfg.hash("s-1"); h != got["session_id"] {
		t.Fatalf("hash not stable: %v vs %v", h, got["session_id"])
	}
	payload := got["payload"].(map[string]interface{})
	if payload["password"] != redacted || payload["title"] != "Seeds" {
		t.Fatalf("nested map: %v", payload)
	}
	if out[len(out)-1] != "dangling" {
		t.Fatalf("odd trailing value dropped: %v", out)
	}
}

func TestWithTraceAddsContextFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	ctx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{RequestID: "r-1", TraceID: "t-1"})
	l.WithTrace(ctx).Info("run started")
	l.WithTrace(context.Background()).Info("no trace")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries: want=2 got=%d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "r-1" || fields["trace_id"] != "t-1" {
		t.Fatalf("trace fields: %v", fields)
	}
	if len(entries[1].ContextMap()) != 0 {
		t.Fatalf("no trace data should add no fields: %v", entries[1].ContextMap())
	}
}
