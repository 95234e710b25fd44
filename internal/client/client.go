package client

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"beacon/internal/bus"
	"beacon/internal/config"
	"beacon/internal/constants"
	"beacon/internal/logger"
	"beacon/internal/notify"
	"beacon/internal/resolver"
	"beacon/internal/store"
	"beacon/internal/stream"
	"beacon/pkg/logging"
	"beacon/pkg/metrics"
	"beacon/pkg/models"
)

// Signal is the local UI-level "new notification" event, the client's only
// push output to the presentation layer besides the store's read values.
type Signal struct {
	ID        string
	Hydrating bool
}

// Client is one "tab": it owns the delivery channel, the notification
// store, a bus handle, and the hydration phase. Records from the channel
// and from sibling instances funnel through one ingest path sharing one
// dedup set (the store's id index), which makes delivery at-most-once
// effective no matter which source saw a record first.
type Client struct {
	cfg        *config.Config
	log        logger.Logger
	store      *store.Store
	normalizer *notify.Normalizer
	bus        bus.Bus
	channel    *stream.Channel
	origin     string
	signals    chan Signal

	// hydrating is owned by the channel goroutine: only the channel
	// callbacks touch it. Bus-origin records carry their publisher's
	// phase in the envelope instead.
	hydrating bool

	runCtx context.Context
}

func New(cfg *config.Config, b bus.Bus, res *resolver.Resolver, log logger.Logger) *Client {
	c := &Client{
		cfg:        cfg,
		log:        log,
		store:      store.New(cfg.Store.Cap),
		normalizer: notify.NewNormalizer(res, log),
		bus:        b,
		origin:     uuid.NewString(),
		signals:    make(chan Signal, constants.SignalBufferSize),
	}

	c.channel = stream.NewChannel(cfg.Stream, log, stream.Events{
		OnSeed:     c.onSeed,
		OnHydrate:  c.onHydrate,
		OnHydrated: c.onHydrated,
		OnMessage:  c.onMessage,
	})

	return c
}

// Run drives the channel and the bus subscription until ctx is cancelled.
// Cancelling ctx is the whole teardown: the stream closes, pending backoff
// timers die with it, and the bus handle stops delivering.
func (c *Client) Run(ctx context.Context) error {
	ctx = logging.WithInstanceID(ctx, c.origin)
	c.runCtx = ctx

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.channel.Run(gCtx)
	})
	g.Go(func() error {
		return c.bus.Subscribe(gCtx, c.onBusEnvelope)
	})

	err := g.Wait()
	if closeErr := c.bus.Close(); closeErr != nil {
		c.log.WarnwCtx(ctx, "Bus close error", "error", closeErr)
	}
	return err
}

// Notifications returns the current list, most recent first.
func (c *Client) Notifications() []models.NotificationRecord {
	return c.store.Snapshot()
}

// Unread returns the current unread counter.
func (c *Client) Unread() int {
	return c.store.Unread()
}

// Signals is the toast/badge feed. The channel is buffered and lossy; a
// consumer that stops draining loses signals, never delivery.
func (c *Client) Signals() <-chan Signal {
	return c.signals
}

// Connected reports delivery channel connectivity.
func (c *Client) Connected() bool {
	return c.channel.Connected()
}

// MarkRead applies a confirmed (or optimistic) single-record read
// transition locally.
func (c *Client) MarkRead(id string) bool {
	return c.store.MarkRead(id)
}

// MarkAllRead marks every record read and zeroes the counter.
func (c *Client) MarkAllRead() int {
	return c.store.MarkAllRead()
}

func (c *Client) onSeed(count int) {
	c.store.SeedUnread(count)
	c.log.InfowCtx(c.runCtx, "Unread counter seeded", "count", count)
}

func (c *Client) onHydrate() {
	c.hydrating = true
}

func (c *Client) onHydrated() {
	c.hydrating = false
	c.log.InfowCtx(c.runCtx, "Hydration complete",
		"records", c.store.Len(),
		"unread", c.store.Unread(),
	)
}

func (c *Client) onMessage(data []byte) {
	rec, err := notify.Decode(data)
	if err != nil {
		// A single bad frame must never break the connection.
		metrics.StreamMessagesTotal.WithLabelValues("malformed").Inc()
		c.log.DebugwCtx(c.runCtx, "Dropping malformed notification", "error", err)
		return
	}
	metrics.StreamMessagesTotal.WithLabelValues("parsed").Inc()

	hydrating := c.hydrating
	if !c.ingest(c.runCtx, rec, hydrating) {
		metrics.StreamMessagesTotal.WithLabelValues("duplicate").Inc()
		return
	}

	env := bus.Envelope{Origin: c.origin, Hydrating: hydrating, Record: rec}
	if err := c.bus.Publish(c.runCtx, env); err != nil {
		c.log.DebugwCtx(c.runCtx, "Bus publish failed", "error", err)
	}
}

func (c *Client) onBusEnvelope(ctx context.Context, env bus.Envelope) {
	if env.Origin == c.origin {
		return
	}
	c.ingest(ctx, env.Record, env.Hydrating)
}

// ingest is the single insertion path for both sources: normalize, insert
// against the shared dedup set, and emit the UI signal for genuinely live
// records. Insertion never waits on href resolution; the resolver patches
// the stored record when a late result lands.
func (c *Client) ingest(ctx context.Context, rec models.NotificationRecord, hydrating bool) bool {
	ctx = logging.WithNotificationID(ctx, rec.ID)

	c.normalizer.Normalize(ctx, &rec, c.patchHref)

	live := !hydrating
	if !c.store.Insert(rec, live) {
		return false
	}

	if live {
		c.emitSignal(Signal{ID: rec.ID, Hydrating: hydrating})
	}
	return true
}

func (c *Client) patchHref(id, href string) {
	if c.store.PatchHref(id, href) {
		c.log.DebugwCtx(c.runCtx, "Patched late-resolved href",
			"notification_id", id,
			"href", href,
		)
	}
}

func (c *Client) emitSignal(sig Signal) {
	select {
	case c.signals <- sig:
		metrics.SignalsTotal.WithLabelValues("emitted").Inc()
	default:
		metrics.SignalsTotal.WithLabelValues("dropped").Inc()
	}
}
