package providers

import (
	"context"

	"github.com/canopyerp/outbound/internal/delivery"
)

// Base supplies the shared DeliverWebhook capability so adapters get the
// engine's retry, backoff, and signing behavior without reimplementing it.
// Concrete adapters embed it.
type Base struct {
	client *delivery.Client
}

// NewBase wraps a delivery client. A nil client gets the defaults.
func NewBase(client *delivery.Client) Base {
	if client == nil {
		client = delivery.NewClient()
	}
	return Base{client: client}
}

// DeliverWebhook runs the full retry sequence for the request.
func (b Base) DeliverWebhook(ctx context.Context, req *delivery.Request) *delivery.Result {
	return b.client.Deliver(ctx, req)
}
