package bus

import (
	"context"

	"go.uber.org/zap"

	"github.com/Ashfaaq98/mispctl/internal/misp"
)

// NoticeStream is the Redis stream event notices are published to.
const NoticeStream = "misp-events"

// NoticeHandler processes one notice read from the stream.
type NoticeHandler func(ctx context.Context, notice misp.EventNotice) error

// Bus carries event notices to other tools. Every Bus is a misp.Notifier.
type Bus interface {
	// NotifyEvent publishes a notice to the notice stream
	NotifyEvent(ctx context.Context, notice misp.EventNotice) error

	// ReadNotices consumes the notice stream until ctx is cancelled
	ReadNotices(ctx context.Context, group, consumer string, handler NoticeHandler) error

	// HealthCheck performs a health check on the bus connection
	HealthCheck(ctx context.Context) error

	Close() error
}

// NewBus returns a Redis-backed bus for redisURL, or a NullBus when the URL
// is empty or Redis is unreachable.
func NewBus(redisURL string, logger *zap.Logger) Bus {
	if logger == nil {
		logger = zap.NewNop()
	}

	if redisURL == "" {
		return NewNullBus(logger)
	}

	redisBus, err := NewRedisBus(redisURL, logger)
	if err != nil {
		logger.Warn("redis unavailable, event notices disabled", zap.Error(err))
		return NewNullBus(logger)
	}
	return redisBus
}
