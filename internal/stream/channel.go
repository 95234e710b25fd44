package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"beacon/internal/config"
	"beacon/internal/constants"
	"beacon/internal/logger"
	"beacon/pkg/metrics"
	"beacon/pkg/models"
	"beacon/pkg/retry"
)

// Events are the channel's callbacks into the owning client. All of them
// are invoked from the channel's run goroutine, in arrival order.
type Events struct {
	OnSeed      func(count int)
	OnHydrate   func()
	OnHydrated  func()
	OnMessage   func(data []byte)
	OnReconnect func(delay time.Duration)
}

// Channel maintains the long-lived push connection: one stream per client,
// exponential backoff on failure, reconnecting indefinitely for as long as
// the context lives. The user-visible contract is "eventually up to date",
// so transport failures are never surfaced as errors.
type Channel struct {
	cfg       config.StreamConfig
	streamer  *http.Client
	oneshot   *http.Client
	logger    logger.Logger
	events    Events
	connected atomic.Bool
}

func NewChannel(cfg config.StreamConfig, log logger.Logger, events Events) *Channel {
	return &Channel{
		cfg: cfg,
		// The stream client carries no overall timeout: the response body
		// is read for the life of the connection.
		streamer: &http.Client{},
		oneshot:  &http.Client{Timeout: constants.DefaultHTTPTimeout},
		logger:   log,
		events:   events,
	}
}

// Run seeds the unread counter from the authoritative endpoint, then holds
// the stream open until ctx is cancelled, reconnecting with exponential
// backoff after every failure. Returns only on cancellation.
func (c *Channel) Run(ctx context.Context) error {
	c.seedUnreadCount(ctx)

	b := retry.ExponentialBackoff(
		c.cfg.InitialBackoff,
		c.cfg.MaxBackoff,
		constants.BackoffMultiplier,
	)

	for {
		err := c.connectOnce(ctx, b.Reset)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := b.NextBackOff()
		metrics.StreamReconnectsTotal.Inc()
		c.logger.WarnwCtx(ctx, "Stream disconnected, reconnecting",
			"error", err,
			"delay", delay,
		)
		if c.events.OnReconnect != nil {
			c.events.OnReconnect(delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Connected reports whether the stream is currently open.
func (c *Channel) Connected() bool {
	return c.connected.Load()
}

// connectOnce opens the stream and consumes frames until it breaks.
// onMessage resets the reconnect backoff: a working connection earns back
// its short first retry.
func (c *Channel) connectOnce(ctx context.Context, resetBackoff func()) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("failed to create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamer.Do(req)
	if err != nil {
		return fmt.Errorf("stream connect failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream endpoint returned status: %d", resp.StatusCode)
	}

	c.connected.Store(true)
	metrics.StreamConnected.Set(1)
	defer func() {
		c.connected.Store(false)
		metrics.StreamConnected.Set(0)
	}()

	c.logger.InfowCtx(ctx, "Stream connected")

	return ReadEvents(resp.Body, func(ev Event) {
		resetBackoff()
		switch ev.Name {
		case EventHydrate:
			if c.events.OnHydrate != nil {
				c.events.OnHydrate()
			}
		case EventHydrated:
			if c.events.OnHydrated != nil {
				c.events.OnHydrated()
			}
		default:
			if len(ev.Data) > 0 && c.events.OnMessage != nil {
				c.events.OnMessage(ev.Data)
			}
		}
	})
}

// seedUnreadCount performs the one-shot authoritative count fetch before
// the stream opens, with a short bounded retry. Failure degrades to a zero
// seed; live increments still work from there.
func (c *Channel) seedUnreadCount(ctx context.Context) {
	var count int
	err := retry.Retry(ctx, retry.Policy{
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
	}, func() error {
		var err error
		count, err = c.fetchUnreadCount(ctx)
		return err
	})
	if err != nil {
		c.logger.WarnwCtx(ctx, "Unread count seed failed, starting from zero",
			"error", err,
		)
		count = 0
	}
	if c.events.OnSeed != nil {
		c.events.OnSeed(count)
	}
}

func (c *Channel) fetchUnreadCount(ctx context.Context) (int, error) {
	endpoint := c.cfg.BaseURL + constants.DefaultUnreadCountPath + "?token=" + url.QueryEscape(c.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create count request: %w", err)
	}

	resp, err := c.oneshot.Do(req)
	if err != nil {
		return 0, fmt.Errorf("count request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("count endpoint returned status: %d", resp.StatusCode)
	}

	var count models.UnreadCount
	if err := json.NewDecoder(resp.Body).Decode(&count); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}

	return count.Count, nil
}

// streamURL carries the bearer credential as a query parameter; the
// browser streaming primitive this protocol was designed for cannot set
// custom headers.
func (c *Channel) streamURL() string {
	return c.cfg.BaseURL + constants.DefaultStreamPath + "?token=" + url.QueryEscape(c.cfg.Token)
}
