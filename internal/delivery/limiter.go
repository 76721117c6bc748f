package delivery

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter rate-limits outbound deliveries per destination host so one
// slow or chatty subscriber cannot starve the others. A zero rate disables
// limiting.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewHostLimiter creates a limiter allowing rps requests per second with the
// given burst per host. Returns nil when rps <= 0, which callers treat as
// unlimited.
func NewHostLimiter(rps float64, burst int) *HostLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Wait blocks until the host's limiter grants a slot or ctx is canceled.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[host] = lim
	}
	l.mu.Unlock()
	return lim.Wait(ctx)
}
