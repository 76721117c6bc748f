// Package providers defines the automation-platform capability set and its
// concrete adapters. Callers that only need generic webhook delivery depend
// on the Provider interface, never on a concrete adapter type.
package providers

import (
	"context"
	"time"

	"github.com/canopyerp/outbound/internal/delivery"
	"github.com/canopyerp/outbound/internal/events"
)

// Config holds the connection settings shared by adapters.
type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TriggerSpec is the caller's request to register a trigger.
type TriggerSpec struct {
	Name    string            `json:"name"`
	Event   events.Type       `json:"event"`
	URL     string            `json:"webhookUrl"`
	Headers map[string]string `json:"headers,omitempty"`
	Filters []string          `json:"filters,omitempty"`
}

// WorkflowTrigger is a registered trigger. Adapters keep these in a local
// registry distinct from the generic subscription registry; for some
// platforms registration is a true API call, for others it is local
// bookkeeping only.
type WorkflowTrigger struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Event     events.Type       `json:"event"`
	URL       string            `json:"webhookUrl"`
	Active    bool              `json:"isActive"`
	Headers   map[string]string `json:"headers,omitempty"`
	Filters   []string          `json:"filters,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// ConnectionStatus is the result of a health probe.
type ConnectionStatus struct {
	Healthy bool          `json:"isHealthy"`
	Latency time.Duration `json:"-"`
	// LatencyMs mirrors Latency for JSON consumers.
	LatencyMs int64  `json:"latencyMs"`
	Message   string `json:"message"`
}

// Provider is the portable capability set implemented per automation
// platform.
type Provider interface {
	// Initialize validates and applies the connection config.
	Initialize(ctx context.Context, cfg Config) error
	// RegisterTrigger registers interest in an event and returns the
	// stored trigger.
	RegisterTrigger(ctx context.Context, spec TriggerSpec) (*WorkflowTrigger, error)
	// DeactivateTrigger deactivates a trigger, reporting whether it existed.
	DeactivateTrigger(ctx context.Context, id string) (bool, error)
	// TestConnection probes the platform and measures latency.
	TestConnection(ctx context.Context) (*ConnectionStatus, error)
	// DeliverWebhook performs a delivery with the engine's standard
	// retry, backoff, and signing behavior.
	DeliverWebhook(ctx context.Context, req *delivery.Request) *delivery.Result
}
