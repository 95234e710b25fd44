package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"beacon/internal/logger"
	"beacon/pkg/errors"
	"beacon/pkg/metrics"
)

// RedisBus broadcasts envelopes over a Redis pub/sub channel. Pub/sub has
// exactly the contract the bus needs: fire-and-forget, no offsets, no
// replay, every connected subscriber sees every message.
type RedisBus struct {
	client  *redis.Client
	channel string
	logger  logger.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	closed bool
}

func NewRedisBus(client *redis.Client, channel string, log logger.Logger) *RedisBus {
	return &RedisBus{
		client:  client,
		channel: channel,
		logger:  log,
	}
}

func (b *RedisBus) Publish(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		metrics.BusPublishedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, body).Err(); err != nil {
		metrics.BusPublishedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to publish envelope: %w", err)
	}

	metrics.BusPublishedTotal.WithLabelValues("ok").Inc()
	return nil
}

// Subscribe consumes the channel until ctx is cancelled. Malformed and
// panicking messages are dropped individually; the subscription survives.
func (b *RedisBus) Subscribe(ctx context.Context, handler HandlerFunc) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("bus is closed")
	}
	pubsub := b.client.Subscribe(ctx, b.channel)
	b.pubsub = pubsub
	b.mu.Unlock()

	b.logger.InfowCtx(ctx, "Subscribed to notification bus",
		"channel", b.channel,
	)

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return nil
			}

			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				metrics.BusReceivedTotal.WithLabelValues("malformed").Inc()
				b.logger.DebugwCtx(ctx, "Dropping malformed bus envelope",
					"error", err,
				)
				continue
			}

			b.deliver(ctx, env, handler)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *RedisBus) deliver(ctx context.Context, env Envelope, handler HandlerFunc) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.RecoverPanic(r)
			metrics.BusReceivedTotal.WithLabelValues("panic").Inc()
			b.logger.ErrorwCtx(ctx, "Panic recovered in bus handler",
				"error", err,
			)
		}
	}()

	metrics.BusReceivedTotal.WithLabelValues("ok").Inc()
	handler(ctx, env)
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	if b.pubsub != nil {
		return b.pubsub.Close()
	}
	return nil
}
