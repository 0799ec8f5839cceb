package permission

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Broadcaster fans cache invalidation out to every instance sharing a Redis
// channel. Pass Publish as the cache invalidation hook and run Listen for the
// lifetime of the process.
type Broadcaster struct {
	client  redis.UniversalClient
	channel string
	origin  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewBroadcaster constructs a Broadcaster with a random origin id.
func NewBroadcaster(client redis.UniversalClient, channel string, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// Publish announces a local invalidation. Failures are logged; other
// instances then stay stale until their next (re)subscription.
func (b *Broadcaster) Publish() {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.client.Publish(ctx, b.channel, b.origin).Err(); err != nil {
		b.logger.Warn("publish permission invalidation", slog.String("channel", b.channel), slog.Any("error", err))
	}
}

// Listen invalidates cache on messages from other instances until ctx ends.
// Every (re)subscription also invalidates, covering messages missed while
// disconnected.
func (b *Broadcaster) Listen(ctx context.Context, cache *Cache) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer func() {
		_ = pubsub.Close()
	}()

	ch := pubsub.ChannelWithSubscriptions()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			switch m := msg.(type) {
			case *redis.Subscription:
				if m.Kind == "subscribe" {
					cache.InvalidateLocal()
				}
			case *redis.Message:
				if m.Payload != b.origin {
					cache.InvalidateLocal()
					b.logger.Debug("permission cache invalidated by peer", slog.String("origin", m.Payload))
				}
			}
		}
	}
}
