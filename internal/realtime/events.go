package realtime

type SSEEvent string

const (
	SSEEventSlideGenerationStarted   SSEEvent = "SlideGenerationStarted"
	SSEEventSlideGenerationProgress  SSEEvent = "SlideGenerationProgress"
	SSEEventSlideReady               SSEEvent = "SlideReady"
	SSEEventSlideError               SSEEvent = "SlideError"
	SSEEventSlideThumbnailReady      SSEEvent = "SlideThumbnailReady"
	SSEEventSlideGenerationCompleted SSEEvent = "SlideGenerationCompleted"
	SSEEventSlideGenerationFailed    SSEEvent = "SlideGenerationFailed"
	SSEEventLessonStateChanged       SSEEvent = "LessonStateChanged"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// SessionChannel is the channel a generation session publishes on.
func SessionChannel(sessionID string) string { return "session:" + sessionID }
