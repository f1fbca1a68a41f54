package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes bounded exponential backoff. Every network call in the
// exporter runs under the same policy; it is passed around explicitly instead
// of living in package-level constants so tests can substitute a
// deterministic jitter function.
type Policy struct {
	// BaseInterval is the delay before the second attempt.
	BaseInterval time.Duration
	// Factor multiplies the delay after every failed attempt.
	Factor float64
	// MaxAttempts caps the total number of attempts. Values below 1 are
	// treated as a single attempt.
	MaxAttempts int
	// Jitter randomizes each delay. When nil, FullJitter is used.
	Jitter func(time.Duration) time.Duration
}

// FullJitter picks a uniformly random delay in [0, d].
func FullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

// NoJitter returns the delay unchanged. Intended for tests.
func NoJitter(d time.Duration) time.Duration { return d }

// Do runs op until it succeeds, the attempts are exhausted, or ctx is
// cancelled. The last error is returned on exhaustion; ctx.Err() is returned
// when cancellation interrupts a backoff wait.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	jitter := p.Jitter
	if jitter == nil {
		jitter = FullJitter
	}

	delay := p.BaseInterval
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(jitter(delay))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay = time.Duration(float64(delay) * p.Factor)
		}

		if err = op(); err == nil {
			return nil
		}
	}
	return err
}
