// Package dispatch owns the event queue and the fan-out of events to
// matching webhook subscriptions.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/canopyerp/outbound/internal/deadletter"
	"github.com/canopyerp/outbound/internal/delivery"
	"github.com/canopyerp/outbound/internal/events"
	"github.com/canopyerp/outbound/internal/metrics"
	"github.com/canopyerp/outbound/internal/subscriptions"
)

// Dispatcher buffers published events and drains them in arrival order,
// fanning each event out to all matching subscriptions concurrently. It is
// an explicit service object: construct one per process (or per test),
// publish into it, and Stop it to drain gracefully.
type Dispatcher struct {
	registry *subscriptions.Registry
	client   *delivery.Client
	dlq      *deadletter.Store
	timeout  time.Duration

	mu       sync.Mutex
	queue    []*events.Event
	draining bool
	stopped  bool
	wg       sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAttemptTimeout sets the per-attempt delivery timeout.
func WithAttemptTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) { disp.timeout = d }
}

// New creates a dispatcher delivering through client and dead-lettering
// into dlq.
func New(registry *subscriptions.Registry, client *delivery.Client, dlq *deadletter.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		client:   client,
		dlq:      dlq,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Publish appends an event to the queue and schedules a drain without
// blocking. It returns before any network activity happens; individual
// delivery failures never surface to the caller. The returned event carries
// the generated correlation ID.
func (d *Dispatcher) Publish(eventType events.Type, data map[string]any, meta events.Metadata) *events.Event {
	ev := events.New(eventType, data, meta)

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		log.Warn().
			Str("event", string(eventType)).
			Msg("Dispatcher stopped, dropping event")
		return ev
	}
	d.queue = append(d.queue, ev)
	metrics.SetQueueDepth(len(d.queue))
	start := !d.draining
	if start {
		d.draining = true
		d.wg.Add(1)
	}
	d.mu.Unlock()

	metrics.RecordPublish(string(eventType))
	log.Debug().
		Str("event", string(eventType)).
		Str("correlation_id", ev.Metadata.CorrelationID).
		Msg("Event queued")

	if start {
		go d.drain()
	}
	return ev
}

// PublishSync resolves subscriptions and performs the deliveries directly,
// bypassing the buffer, and does not return until every matched subscriber
// has settled. Callers that need to observe outcomes (administrative test
// webhooks) use this; everything else uses Publish.
func (d *Dispatcher) PublishSync(ctx context.Context, eventType events.Type, data map[string]any, meta events.Metadata) ([]*delivery.Result, error) {
	ev := events.New(eventType, data, meta)

	subs, err := d.registry.Resolve(ctx, ev.Type)
	if err != nil {
		return nil, err
	}

	results := make([]*delivery.Result, len(subs))
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub *subscriptions.Subscription) {
			defer wg.Done()
			results[i] = d.deliverOne(ctx, ev, sub)
		}(i, sub)
	}
	wg.Wait()

	return results, nil
}

// Stop rejects further publishes and waits for the running drain, if any,
// to empty the queue. In-flight retry sequences run to their conclusion;
// there is no cross-event cancellation.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	d.wg.Wait()
}

// QueueDepth reports the number of events waiting to be dispatched.
func (d *Dispatcher) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// drain consumes the queue until empty. At most one drain runs at a time:
// Publish only spawns it when no drain is in flight, and the loop re-checks
// emptiness each iteration so events enqueued mid-drain are picked up by
// the same loop.
func (d *Dispatcher) drain() {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.draining = false
			d.mu.Unlock()
			return
		}
		ev := d.queue[0]
		d.queue = d.queue[1:]
		metrics.SetQueueDepth(len(d.queue))
		d.mu.Unlock()

		d.dispatch(ev)
	}
}

// dispatch fans one event out to all matching subscriptions and waits for
// every delivery to settle before returning. A slow or failing subscriber
// does not affect its siblings.
func (d *Dispatcher) dispatch(ev *events.Event) {
	ctx := context.Background()

	subs, err := d.registry.Resolve(ctx, ev.Type)
	if err != nil {
		log.Error().
			Err(err).
			Str("event", string(ev.Type)).
			Msg("Resolving subscriptions failed, event skipped")
		return
	}
	if len(subs) == 0 {
		log.Debug().
			Str("event", string(ev.Type)).
			Msg("No active subscriptions for event")
		return
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *subscriptions.Subscription) {
			defer wg.Done()
			d.deliverOne(ctx, ev, sub)
		}(sub)
	}
	wg.Wait()
}

// deliverOne runs the full retry sequence for one subscription, records the
// outcome, and routes terminal failures to the dead-letter store.
func (d *Dispatcher) deliverOne(ctx context.Context, ev *events.Event, sub *subscriptions.Subscription) *delivery.Result {
	req := &delivery.Request{
		URL:     sub.URL,
		Event:   ev,
		Headers: sub.Headers,
		Secret:  sub.Secret,
		Timeout: d.timeout,
	}

	res := d.client.Deliver(ctx, req)

	if res.Success {
		metrics.RecordDelivery(string(ev.Type), metrics.OutcomeSuccess, res.Duration)
		log.Info().
			Str("event", string(ev.Type)).
			Str("subscription", sub.ID).
			Str("url", sub.URL).
			Int("status", res.StatusCode).
			Int("attempts", res.Attempts).
			Dur("duration", res.Duration).
			Msg("Webhook delivered")
		return res
	}

	outcome := metrics.OutcomeTerminal
	if res.Err.Code == delivery.CodeMaxRetriesExceeded {
		outcome = metrics.OutcomeExpired
	}
	metrics.RecordDelivery(string(ev.Type), outcome, res.Duration)

	log.Error().
		Str("event", string(ev.Type)).
		Str("subscription", sub.ID).
		Str("url", sub.URL).
		Str("code", res.Err.Code).
		Str("error", res.Err.Message).
		Int("attempts", res.Attempts).
		Msg("Webhook delivery failed")

	d.dlq.Append(ev, sub.URL, sub.Headers, sub.Secret, res.Attempts, res.Err.Error())
	metrics.SetDeadLetterSize(d.dlq.Len())
	return res
}
