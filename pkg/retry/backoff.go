package retry

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ExponentialBackoff builds an unjittered exponential backoff with no
// elapsed-time limit. Reconnect delays grow deterministically from
// initialInterval up to maxInterval and stay there until Reset.
func ExponentialBackoff(initialInterval, maxInterval time.Duration, multiplier float64) *backoff.ExponentialBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initialInterval
	exp.MaxInterval = maxInterval
	exp.Multiplier = multiplier
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()
	return exp
}

// CalculateBackoffDuration returns the delay before the given zero-based
// attempt, capped at maxInterval.
func CalculateBackoffDuration(attempt int, initialInterval time.Duration, multiplier float64, maxInterval time.Duration) time.Duration {
	duration := float64(initialInterval) * math.Pow(multiplier, float64(attempt))
	if duration > float64(maxInterval) {
		return maxInterval
	}
	return time.Duration(duration)
}
