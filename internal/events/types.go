package events

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies a kind of domain event.
type Type string

const (
	// TypeTicketCreated fires when a support ticket is opened.
	TypeTicketCreated Type = "ticket.created"
	// TypeTicketUpdated fires when a ticket changes state or assignment.
	TypeTicketUpdated Type = "ticket.updated"
	// TypeTicketSLABreached fires when a ticket misses its SLA deadline.
	TypeTicketSLABreached Type = "ticket.sla_breached"
	// TypePaymentCompleted fires when a payment settles.
	TypePaymentCompleted Type = "payment.completed"
	// TypePaymentFailed fires when a payment is declined or errors.
	TypePaymentFailed Type = "payment.failed"
	// TypeInvoiceCreated fires when a new invoice is issued.
	TypeInvoiceCreated Type = "invoice.created"
	// TypeCustomerOnboarded fires when onboarding completes.
	TypeCustomerOnboarded Type = "customer.onboarded"
)

// Metadata carries the delivery context attached to every event.
type Metadata struct {
	TenantID      string    `json:"tenantId,omitempty"`
	UserID        string    `json:"userId,omitempty"`
	CorrelationID string    `json:"correlationId"`
	Timestamp     time.Time `json:"timestamp"`
}

// Event is an immutable fact about something that happened in the domain.
// Once queued it is never mutated; the correlation ID groups all deliveries
// triggered by the same publication across subscribers.
type Event struct {
	Type     Type           `json:"event"`
	Data     map[string]any `json:"data"`
	Metadata Metadata       `json:"metadata"`
}

// New builds an Event, filling in a correlation ID and timestamp when the
// caller did not provide them.
func New(eventType Type, data map[string]any, meta Metadata) *Event {
	if meta.CorrelationID == "" {
		meta.CorrelationID = uuid.New().String()
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	if data == nil {
		data = map[string]any{}
	}
	return &Event{
		Type:     eventType,
		Data:     data,
		Metadata: meta,
	}
}
