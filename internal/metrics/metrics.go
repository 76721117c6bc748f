// Package metrics exposes Prometheus instrumentation for the delivery
// engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_events_published_total",
			Help: "Total number of events published to the queue",
		},
		[]string{"event"},
	)

	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_deliveries_total",
			Help: "Total number of completed delivery sequences by outcome",
		},
		[]string{"event", "outcome"},
	)

	attemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outbound_delivery_attempt_duration_seconds",
			Help:    "Webhook attempt latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"event"},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbound_queue_depth",
			Help: "Number of events waiting in the dispatch queue",
		},
	)

	deadLetterSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbound_dead_letter_size",
			Help: "Number of entries in the dead-letter store",
		},
	)
)

// Delivery outcomes recorded by RecordDelivery.
const (
	OutcomeSuccess  = "success"
	OutcomeTerminal = "terminal"
	OutcomeExpired  = "max_retries"
)

// RecordPublish counts an event entering the queue.
func RecordPublish(event string) {
	eventsPublished.WithLabelValues(event).Inc()
}

// RecordDelivery counts a settled delivery sequence.
func RecordDelivery(event, outcome string, duration time.Duration) {
	deliveriesTotal.WithLabelValues(event, outcome).Inc()
	attemptDuration.WithLabelValues(event).Observe(duration.Seconds())
}

// SetQueueDepth updates the queue depth gauge.
func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

// SetDeadLetterSize updates the dead-letter gauge.
func SetDeadLetterSize(n int) {
	deadLetterSize.Set(float64(n))
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
