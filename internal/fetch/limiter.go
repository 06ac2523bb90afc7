package fetch

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter enforces a per-host token bucket on top of the random
// politeness delay. A nil or disabled limiter never blocks.
type HostLimiter struct {
	perMinute int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHostLimiter creates a limiter allowing requestsPerMinute requests to
// each host. Non-positive values disable limiting.
func NewHostLimiter(requestsPerMinute int) *HostLimiter {
	return &HostLimiter{
		perMinute: requestsPerMinute,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to host is permitted.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	if l == nil || l.perMinute <= 0 || host == "" {
		return nil
	}
	return l.limiterFor(strings.ToLower(host)).Wait(ctx)
}

func (l *HostLimiter) limiterFor(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[host]
	if ok {
		return limiter
	}
	interval := time.Minute / time.Duration(l.perMinute)
	if interval <= 0 {
		interval = time.Millisecond
	}
	limiter = rate.NewLimiter(rate.Every(interval), 1)
	l.limiters[host] = limiter
	return limiter
}
