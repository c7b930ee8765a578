package bus

import (
	"context"

	"go.uber.org/zap"

	"github.com/Ashfaaq98/mispctl/internal/misp"
)

// NullBus is a no-op implementation of the bus interface for when Redis is disabled
type NullBus struct {
	logger *zap.Logger
}

// NewNullBus creates a new null bus instance
func NewNullBus(logger *zap.Logger) *NullBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NullBus{logger: logger.With(zap.String("component", "null-bus"))}
}

// NotifyEvent logs the notice but doesn't publish it
func (nb *NullBus) NotifyEvent(ctx context.Context, notice misp.EventNotice) error {
	nb.logger.Debug("would publish event notice (Redis disabled)",
		zap.Int("event_id", notice.EventID), zap.Bool("created", notice.Created))
	return nil
}

// ReadNotices blocks until the context is cancelled since there is nothing to read
func (nb *NullBus) ReadNotices(ctx context.Context, group, consumer string, handler NoticeHandler) error {
	nb.logger.Info("would read notice stream (Redis disabled)", zap.String("group", group), zap.String("consumer", consumer))
	<-ctx.Done()
	return ctx.Err()
}

// HealthCheck always returns nil for null bus
func (nb *NullBus) HealthCheck(ctx context.Context) error {
	return nil
}

// Close is a no-op for null bus
func (nb *NullBus) Close() error {
	return nil
}
