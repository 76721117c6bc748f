package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FillsCorrelationAndTimestamp(t *testing.T) {
	ev := New(TypeTicketCreated, nil, Metadata{})

	assert.NotEmpty(t, ev.Metadata.CorrelationID)
	assert.WithinDuration(t, time.Now().UTC(), ev.Metadata.Timestamp, time.Minute)
	assert.NotNil(t, ev.Data)
}

func TestNew_KeepsCallerMetadata(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := New(TypePaymentCompleted, map[string]any{"amount": 100}, Metadata{
		TenantID:      "tenant-1",
		UserID:        "user-7",
		CorrelationID: "corr-42",
		Timestamp:     ts,
	})

	assert.Equal(t, "corr-42", ev.Metadata.CorrelationID)
	assert.Equal(t, ts, ev.Metadata.Timestamp)
	assert.Equal(t, "tenant-1", ev.Metadata.TenantID)
}

func TestEvent_WireFormat(t *testing.T) {
	ev := New(TypeTicketCreated, map[string]any{"ticketId": "T-1"}, Metadata{CorrelationID: "corr-1"})

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "ticket.created", decoded["event"])
	payload, ok := decoded["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "T-1", payload["ticketId"])

	meta, ok := decoded["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "corr-1", meta["correlationId"])
	assert.NotEmpty(t, meta["timestamp"])
	_, hasTenant := meta["tenantId"]
	assert.False(t, hasTenant, "empty tenant is omitted")
}
