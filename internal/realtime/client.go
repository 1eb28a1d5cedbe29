package realtime

import (
	"github.com/google/uuid"

	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

const outboundBuffer = 64

type SSEClient struct {
	ID       uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	Logger   *logger.Logger
}
