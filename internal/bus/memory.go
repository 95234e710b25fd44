package bus

import (
	"context"
	"sync"

	"beacon/internal/logger"
	"beacon/pkg/errors"
	"beacon/pkg/metrics"
)

const memoryBusBuffer = 256

// MemoryHub fans envelopes out to every attached MemoryBus in the same
// process. It is the in-process rendition of a same-origin broadcast
// channel; tests and single-instance deployments use it.
type MemoryHub struct {
	mu   sync.RWMutex
	subs map[*MemoryBus]struct{}
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		subs: make(map[*MemoryBus]struct{}),
	}
}

// NewBus attaches a new handle to the hub. Every handle sees every
// published envelope, including the publisher's own (subscribers filter by
// Origin).
func (h *MemoryHub) NewBus(log logger.Logger) *MemoryBus {
	b := &MemoryBus{
		hub:    h,
		ch:     make(chan Envelope, memoryBusBuffer),
		logger: log,
	}

	h.mu.Lock()
	h.subs[b] = struct{}{}
	h.mu.Unlock()

	return b
}

func (h *MemoryHub) broadcast(env Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		select {
		case sub.ch <- env:
		default:
			// Fire-and-forget: a stalled subscriber drops, never blocks.
			metrics.BusPublishedTotal.WithLabelValues("dropped").Inc()
		}
	}
}

func (h *MemoryHub) detach(b *MemoryBus) {
	h.mu.Lock()
	delete(h.subs, b)
	h.mu.Unlock()
}

type MemoryBus struct {
	hub       *MemoryHub
	ch        chan Envelope
	logger    logger.Logger
	closeOnce sync.Once
}

func (b *MemoryBus) Publish(ctx context.Context, env Envelope) error {
	b.hub.broadcast(env)
	metrics.BusPublishedTotal.WithLabelValues("ok").Inc()
	return nil
}

// Subscribe delivers envelopes to handler until ctx is cancelled. Handler
// panics are contained; one bad message must never end the loop.
func (b *MemoryBus) Subscribe(ctx context.Context, handler HandlerFunc) error {
	for {
		select {
		case env := <-b.ch:
			b.deliver(ctx, env, handler)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *MemoryBus) deliver(ctx context.Context, env Envelope, handler HandlerFunc) {
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

func (b *MemoryBus) Close() error {
	b.closeOnce.Do(func() {
		b.hub.detach(b)
	})
	return nil
}
