package subscriptions

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopyerp/outbound/internal/events"
)

func TestFileSource_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subscriptions.yaml")
	content := `
subscriptions:
  - id: billing-sync
    url: https://hooks.example.com/billing
    events: ["payment.*", "invoice.created"]
    headers:
      X-Team: billing
    secret: s3cret
    active: true
  - id: disabled
    url: https://hooks.example.com/old
    events: ["ticket.created"]
    active: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	subs, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 2)

	billing := subs[0]
	assert.Equal(t, "billing-sync", billing.ID)
	assert.Equal(t, "https://hooks.example.com/billing", billing.URL)
	assert.Equal(t, "billing", billing.Headers["X-Team"])
	assert.Equal(t, "s3cret", billing.Secret)
	assert.True(t, billing.Active)
	assert.True(t, billing.Matches(events.TypePaymentCompleted))
	assert.True(t, billing.Matches(events.TypeInvoiceCreated))
	assert.False(t, billing.Matches(events.TypeTicketCreated))

	assert.False(t, subs[1].Active)
}

func TestFileSource_MissingFile(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.yaml")).Load(context.Background())
	assert.Error(t, err)
}

func TestFileSource_BadPattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subscriptions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
subscriptions:
  - id: broken
    url: https://ex.com
    events: ["ticket.["]
    active: true
`), 0o600))

	_, err := NewFileSource(path).Load(context.Background())
	assert.Error(t, err)
}

func TestSQLiteSource_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.db")
	source, err := OpenSQLiteSource(path)
	require.NoError(t, err)
	defer source.Close()

	ctx := context.Background()
	sub := &Subscription{
		ID:       "crm",
		URL:      "https://hooks.example.com/crm",
		Events:   []string{"customer.onboarded", "ticket.*"},
		Headers:  map[string]string{"Authorization": "Bearer token"},
		Secret:   "hush",
		Active:   true,
		TenantID: "tenant-1",
	}
	require.NoError(t, source.Upsert(ctx, sub))

	loaded, err := source.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[0]
	assert.Equal(t, sub.ID, got.ID)
	assert.Equal(t, sub.URL, got.URL)
	assert.Equal(t, sub.Events, got.Events)
	assert.Equal(t, sub.Headers, got.Headers)
	assert.Equal(t, sub.Secret, got.Secret)
	assert.Equal(t, sub.TenantID, got.TenantID)
	assert.True(t, got.Active)
	assert.True(t, got.Matches(events.TypeTicketSLABreached))
}

func TestSQLiteSource_UpsertReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.db")
	source, err := OpenSQLiteSource(path)
	require.NoError(t, err)
	defer source.Close()

	ctx := context.Background()
	require.NoError(t, source.Upsert(ctx, &Subscription{
		ID: "crm", URL: "https://old.example.com", Events: []string{"ticket.created"}, Active: true,
	}))
	require.NoError(t, source.Upsert(ctx, &Subscription{
		ID: "crm", URL: "https://new.example.com", Events: []string{"ticket.created"}, Active: true,
	}))

	loaded, err := source.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "https://new.example.com", loaded[0].URL)
}

func TestSQLiteSource_Deactivate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.db")
	source, err := OpenSQLiteSource(path)
	require.NoError(t, err)
	defer source.Close()

	ctx := context.Background()
	require.NoError(t, source.Upsert(ctx, &Subscription{
		ID: "crm", URL: "https://ex.com", Events: []string{"ticket.created"}, Active: true,
	}))
	require.NoError(t, source.Deactivate(ctx, "crm"))

	loaded, err := source.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.False(t, loaded[0].Active)

	assert.Error(t, source.Deactivate(ctx, "missing"))
}

func TestStaticSource_CompilesPatterns(t *testing.T) {
	_, err := NewStaticSource([]*Subscription{
		{ID: "bad", URL: "https://ex.com", Events: []string{"ticket.["}, Active: true},
	})
	assert.Error(t, err)
}
