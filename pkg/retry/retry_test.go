package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     4 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	sentinel := errors.New("down")
	err := Retry(context.Background(), fastPolicy(3), func() error {
		calls++
		return sentinel
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Retry(ctx, fastPolicy(10), func() error {
		calls++
		cancel()
		return errors.New("transient")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
