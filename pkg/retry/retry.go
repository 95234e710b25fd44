package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
	}
}

// Retry runs fn up to MaxAttempts times with exponential spacing, stopping
// early when ctx is cancelled.
func Retry(ctx context.Context, policy Policy, fn func() error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}

	var b backoff.BackOff = ExponentialBackoff(
		policy.InitialInterval,
		policy.MaxInterval,
		policy.Multiplier,
	)
	b = backoff.WithContext(b, ctx)
	b = backoff.WithMaxRetries(b, uint64(policy.MaxAttempts-1))

	return backoff.Retry(fn, b)
}
