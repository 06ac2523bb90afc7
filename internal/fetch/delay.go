package fetch

import (
	"context"
	"math/rand/v2"
	"time"
)

// DelayWindow is a uniform random politeness delay in [Min, Max].
type DelayWindow struct {
	Min time.Duration
	Max time.Duration
}

// Next returns a random duration within the window.
func (w DelayWindow) Next() time.Duration {
	if w.Max <= w.Min {
		return max(w.Min, 0)
	}
	return w.Min + rand.N(w.Max-w.Min+1) //nolint:gosec // jitter, not security
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
