package realtime

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	heartbeatInterval = 15 * time.Second
	// reconnect delay suggested to EventSource clients, in milliseconds
	retryHintMs = 3000
)

// writeFrame writes msg as a named SSE event. The data line carries the
// whole message so clients listening on "message" still decode it.
func writeFrame(w io.Writer, id uint64, msg SSEMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	event := string(msg.Event)
	if event == "" {
		event = "message"
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, raw)
	return err
}

// ServeHTTP streams the client's messages until the request ends or the
// client is closed. It sends a comment every heartbeatInterval so proxies
// keep the connection open.
func (hub *SSEHub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *SSEClient) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n: connected %s\n\n", retryHintMs, client.ID)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	var seq uint64
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			client.Logger.Debug("SSE client disconnected", "err", ctx.Err())
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg, ok := <-client.Outbound:
			if !ok {
				return
			}
			seq++
			if err := writeFrame(w, seq, msg); err != nil {
				client.Logger.Warn("Failed to write SSE frame", "event", msg.Event, "error", err)
				continue
			}
			flusher.Flush()
		}
	}
}
