package bus

import (
	"context"
	"testing"

	"github.com/yungbote/slideforge-backend/internal/realtime"
)

func TestCodecRoundTripKeepsChannelAndEvent(t *testing.T) {
	raw, err := encode(realtime.SSEMessage{Channel: "session:1", Event: realtime.SSEEventSlideReady, Data: map[string]any{"slideNumber": 2}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg, err := decode(string(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Channel != "session:1" || msg.Event != realtime.SSEEventSlideReady {
		t.Fatalf("msg: %+v", msg)
	}
	if data, ok := msg.Data.(map[string]any); !ok || data["slideNumber"] != float64(2) {
		t.Fatalf("data: %#v", msg.Data)
	}
}

func TestCodecRejectsChannelless(t *testing.T) {
	if _, err := encode(realtime.SSEMessage{Event: realtime.SSEEventSlideReady}); err == nil {
		t.Fatalf("encode should reject empty channel")
	}
	if _, err := decode(`{"event":"SlideReady"}`); err == nil {
		t.Fatalf("decode should reject empty channel")
	}
	if _, err := decode(`not json`); err == nil {
		t.Fatalf("decode should reject garbage")
	}
}

func TestLocalBusForwardsToHub(t *testing.T) {
	hub := realtime.NewSSEHub(nil)
	client := hub.NewSSEClient()
	hub.AddChannel(client, realtime.SessionChannel("s1"))

	b := NewLocalBus()
	if err := b.StartForwarder(context.Background(), hub.Broadcast); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	if err := b.Publish(context.Background(), realtime.SSEMessage{Channel: realtime.SessionChannel("s1"), Event: realtime.SSEEventSlideError}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case msg := <-client.Outbound:
		if msg.Event != realtime.SSEEventSlideError {
			t.Fatalf("event: got=%s", msg.Event)
		}
	default:
		t.Fatalf("message not forwarded")
	}

	_ = b.Close()
	if err := b.Publish(context.Background(), realtime.SSEMessage{Channel: realtime.SessionChannel("s1"), Event: realtime.SSEEventSlideReady}); err != nil {
		t.Fatalf("Publish after close: %v", err)
	}
	if len(client.Outbound) != 0 {
		t.Fatalf("closed bus still forwarding")
	}
}
