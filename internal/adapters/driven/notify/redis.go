package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
)

// DefaultRedisChannel is the pub/sub channel events are published on.
const DefaultRedisChannel = "hrwatch:anomalies"

// Publisher is the part of redis.UniversalClient the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Ensure RedisNotifier implements the Notifier interface.
var _ driven.Notifier = (*RedisNotifier)(nil)

// RedisNotifier publishes each event as JSON on a Redis channel.
type RedisNotifier struct {
	client  Publisher
	channel string
}

// NewRedisNotifier creates a notifier publishing on channel
// (DefaultRedisChannel when empty).
func NewRedisNotifier(client Publisher, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisNotifier{client: client, channel: channel}
}

// NewRedisClient connects to the server described by a redis:// URL.
func NewRedisClient(rawURL string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Notify publishes the event. Having no subscribers is not an error.
func (n *RedisNotifier) Notify(ctx context.Context, e domain.AnomalyEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
