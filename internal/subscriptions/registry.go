package subscriptions

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/canopyerp/outbound/internal/events"
)

// DefaultCacheTTL is how long a loaded subscription set is trusted before
// the source is consulted again.
const DefaultCacheTTL = 5 * time.Minute

// Registry resolves the active subscriptions interested in an event type.
// Loads go through a TTL cache so the publish path does not hammer the
// configuration source; when a reload fails the stale cache is served
// instead, because delivery is best-effort and the registry must not become
// a single point of failure for domain operations that emit events.
type Registry struct {
	source Source
	ttl    time.Duration

	mu       sync.RWMutex
	cached   []*Subscription
	loadedAt time.Time
	loaded   bool
}

// NewRegistry creates a registry over the source. A non-positive ttl falls
// back to DefaultCacheTTL.
func NewRegistry(source Source, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Registry{
		source: source,
		ttl:    ttl,
	}
}

// Resolve returns the active subscriptions matching eventType. The error is
// non-nil only when the source fails and no cached set exists to fall back
// on.
func (r *Registry) Resolve(ctx context.Context, eventType events.Type) ([]*Subscription, error) {
	all, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var matched []*Subscription
	for _, sub := range all {
		if sub.Active && sub.Matches(eventType) {
			matched = append(matched, sub)
		}
	}
	return matched, nil
}

// ClearCache expires the cached set so the next Resolve reloads from the
// source. Administrative changes call this to take effect before TTL expiry.
// The old set is kept as the stale fallback in case the reload fails.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = false

	log.Debug().Msg("Subscription cache cleared")
}

func (r *Registry) snapshot(ctx context.Context) ([]*Subscription, error) {
	r.mu.RLock()
	if r.loaded && time.Since(r.loadedAt) < r.ttl {
		cached := r.cached
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if r.loaded && time.Since(r.loadedAt) < r.ttl {
		return r.cached, nil
	}

	subs, err := r.source.Load(ctx)
	if err != nil {
		if r.cached != nil {
			log.Warn().Err(err).Msg("Subscription reload failed, serving stale cache")
			return r.cached, nil
		}
		return nil, err
	}

	r.cached = subs
	r.loadedAt = time.Now()
	r.loaded = true

	log.Debug().Int("count", len(subs)).Msg("Subscriptions loaded")
	return subs, nil
}
