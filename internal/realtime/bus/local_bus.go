package bus

import (
	"context"
	"sync"

	"github.com/yungbote/slideforge-backend/internal/realtime"
)

// LocalBus delivers messages in-process. It is used when REDIS_ADDR is unset
// so a single instance behaves the same as a clustered one.
type LocalBus struct {
	mu        sync.RWMutex
	receivers []func(realtime.SSEMessage)
}

func NewLocalBus() *LocalBus { return &LocalBus{} }

func (b *LocalBus) Publish(_ context.Context, msg realtime.SSEMessage) error {
	if _, err := encode(msg); err != nil {
		return err
	}
	b.mu.RLock()
	receivers := append([]func(realtime.SSEMessage){}, b.receivers...)
	b.mu.RUnlock()
	for _, r := range receivers {
		r(msg)
	}
	return nil
}

func (b *LocalBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	b.mu.Lock()
	b.receivers = append(b.receivers, onMsg)
	b.mu.Unlock()
	return nil
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	b.receivers = nil
	b.mu.Unlock()
	return nil
}
