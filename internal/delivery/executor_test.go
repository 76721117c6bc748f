package delivery

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopyerp/outbound/internal/events"
)

func testEvent() *events.Event {
	return events.New(events.TypeTicketCreated, map[string]any{"ticketId": "T-100"}, events.Metadata{})
}

func TestExecutor_Success(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeaders = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"received":true}`))
	}))
	defer srv.Close()

	exec := NewExecutor()
	res := exec.Attempt(context.Background(), &Request{
		URL:     srv.URL,
		Event:   testEvent(),
		Headers: map[string]string{"X-Custom": "value"},
	}, 1)

	require.True(t, res.Success)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Nil(t, res.Err)

	body, ok := res.Body.(map[string]any)
	require.True(t, ok, "2xx JSON body should be parsed")
	assert.Equal(t, true, body["received"])

	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, userAgent, gotHeaders.Get("User-Agent"))
	assert.Equal(t, "ticket.created", gotHeaders.Get(HeaderEvent))
	assert.Equal(t, "1", gotHeaders.Get(HeaderAttempt))
	assert.Equal(t, "value", gotHeaders.Get("X-Custom"))

	ts, err := time.Parse(time.RFC3339, gotHeaders.Get(HeaderTimestamp))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "ticket.created", payload["event"])
}

func TestExecutor_Signature(t *testing.T) {
	var gotBody []byte
	var gotSignature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get(HeaderSignature)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	exec := NewExecutor()
	res := exec.Attempt(context.Background(), &Request{
		URL:    srv.URL,
		Event:  testEvent(),
		Secret: "super-secret",
	}, 1)

	require.True(t, res.Success)

	// The signature must cover the exact body bytes sent.
	mac := hmac.New(sha256.New, []byte("super-secret"))
	mac.Write(gotBody)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, gotSignature)
}

func TestExecutor_NoSignatureWithoutSecret(t *testing.T) {
	var gotSignature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get(HeaderSignature)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	exec := NewExecutor()
	exec.Attempt(context.Background(), &Request{URL: srv.URL, Event: testEvent()}, 1)
	assert.Empty(t, gotSignature)
}

func TestExecutor_StatusClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantRetryable bool
		wantCode      string
	}{
		{"bad request is terminal", http.StatusBadRequest, false, "HTTP_400"},
		{"not found is terminal", http.StatusNotFound, false, "HTTP_404"},
		{"unprocessable is terminal", http.StatusUnprocessableEntity, false, "HTTP_422"},
		{"request timeout is retryable", http.StatusRequestTimeout, true, "HTTP_408"},
		{"rate limited is retryable", http.StatusTooManyRequests, true, "HTTP_429"},
		{"server error is retryable", http.StatusInternalServerError, true, "HTTP_500"},
		{"unavailable is retryable", http.StatusServiceUnavailable, true, "HTTP_503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			exec := NewExecutor()
			res := exec.Attempt(context.Background(), &Request{URL: srv.URL, Event: testEvent()}, 1)

			require.False(t, res.Success)
			require.NotNil(t, res.Err)
			assert.Equal(t, tt.wantCode, res.Err.Code)
			assert.Equal(t, tt.wantRetryable, res.Err.Retryable)
			assert.Equal(t, tt.status, res.StatusCode)
		})
	}
}

func TestExecutor_TimeoutIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	exec := NewExecutor()
	res := exec.Attempt(context.Background(), &Request{
		URL:     srv.URL,
		Event:   testEvent(),
		Timeout: 20 * time.Millisecond,
	}, 1)

	require.False(t, res.Success)
	assert.Equal(t, CodeDeliveryFailed, res.Err.Code)
	assert.True(t, res.Err.Retryable)
}

func TestExecutor_NetworkErrorIsRetryable(t *testing.T) {
	exec := NewExecutor()
	res := exec.Attempt(context.Background(), &Request{
		URL:     "http://127.0.0.1:1", // nothing listens here
		Event:   testEvent(),
		Timeout: time.Second,
	}, 1)

	require.False(t, res.Success)
	assert.Equal(t, CodeDeliveryFailed, res.Err.Code)
	assert.True(t, res.Err.Retryable)
}

func TestExecutor_RawTextBodyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("plain ok"))
	}))
	defer srv.Close()

	exec := NewExecutor()
	res := exec.Attempt(context.Background(), &Request{URL: srv.URL, Event: testEvent()}, 1)

	require.True(t, res.Success)
	assert.Equal(t, "plain ok", res.Body)
}
