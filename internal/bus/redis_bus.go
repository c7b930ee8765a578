package bus

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Ashfaaq98/mispctl/internal/misp"
)

// RedisBus publishes event notices on a Redis Stream.
type RedisBus struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBus creates a new Redis bus instance
func NewRedisBus(redisURL string, logger *zap.Logger) (*RedisBus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &RedisBus{
		client: client,
		logger: logger.With(zap.String("component", "redis-bus")),
	}, nil
}

// Close closes the Redis connection
func (rb *RedisBus) Close() error {
	return rb.client.Close()
}

// NotifyEvent publishes a notice to the notice stream
func (rb *RedisBus) NotifyEvent(ctx context.Context, notice misp.EventNotice) error {
	result := rb.client.XAdd(ctx, &redis.XAddArgs{
		Stream: NoticeStream,
		Values: noticeFields(notice),
	})
	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to publish event notice: %w", err)
	}

	rb.logger.Debug("published event notice", zap.Int("event_id", notice.EventID), zap.String("id", result.Val()))
	return nil
}

// ReadNotices reads the notice stream through a consumer group, acknowledging
// each message once handler returns without error.
func (rb *RedisBus) ReadNotices(ctx context.Context, group, consumer string, handler NoticeHandler) error {
	if err := rb.createConsumerGroup(ctx, group); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result := rb.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{NoticeStream, ">"},
			Count:    10,
			Block:    time.Second,
		})
		if err := result.Err(); err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read notice stream: %w", err)
		}

		for _, stream := range result.Val() {
			for _, message := range stream.Messages {
				notice := parseNotice(message.Values)
				if err := handler(ctx, notice); err != nil {
					rb.logger.Warn("notice handler failed", zap.String("id", message.ID), zap.Error(err))
					continue
				}
				if err := rb.client.XAck(ctx, NoticeStream, group, message.ID).Err(); err != nil {
					rb.logger.Warn("failed to acknowledge notice", zap.String("id", message.ID), zap.Error(err))
				}
			}
		}
	}
}

// HealthCheck performs a health check on the Redis connection
func (rb *RedisBus) HealthCheck(ctx context.Context) error {
	return rb.client.Ping(ctx).Err()
}

func (rb *RedisBus) createConsumerGroup(ctx context.Context, group string) error {
	err := rb.client.XGroupCreateMkStream(ctx, NoticeStream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", group, err)
	}
	return nil
}

// noticeFields flattens a notice into stream values. Redis returns every
// value as a string, so everything is stored as one.
func noticeFields(n misp.EventNotice) map[string]interface{} {
	return map[string]interface{}{
		"event_id": strconv.Itoa(n.EventID),
		"info":     n.Info,
		"org":      n.Org,
		"created":  strconv.FormatBool(n.Created),
	}
}

func parseNotice(values map[string]interface{}) misp.EventNotice {
	id, _ := strconv.Atoi(getStringField(values, "event_id"))
	created, _ := strconv.ParseBool(getStringField(values, "created"))
	return misp.EventNotice{
		EventID: id,
		Info:    getStringField(values, "info"),
		Org:     getStringField(values, "org"),
		Created: created,
	}
}

// getStringField extracts a string field from Redis message values
func getStringField(values map[string]interface{}, key string) string {
	if value, ok := values[key]; ok {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return ""
}
