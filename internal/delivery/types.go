package delivery

import (
	"fmt"
	"time"

	"github.com/canopyerp/outbound/internal/events"
)

// Error codes carried by failed delivery results.
const (
	// CodeDeliveryFailed marks a network or timeout failure.
	CodeDeliveryFailed = "DELIVERY_FAILED"
	// CodeMaxRetriesExceeded marks a delivery whose every attempt was a
	// retryable failure and the retry budget ran out.
	CodeMaxRetriesExceeded = "MAX_RETRIES_EXCEEDED"
)

// HTTPCode returns the error code for a rejected HTTP response,
// e.g. "HTTP_404".
func HTTPCode(status int) string {
	return fmt.Sprintf("HTTP_%d", status)
}

// Error describes a failed delivery attempt. Retryable tells the retry
// controller whether another attempt can change the outcome; every failed
// Result must carry a non-empty Code and an explicit Retryable flag.
type Error struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Request describes one webhook delivery.
type Request struct {
	URL     string
	Event   *events.Event
	Headers map[string]string
	// Secret, when set, enables HMAC-SHA256 signing of the body.
	Secret  string
	Timeout time.Duration
}

// Result is the outcome of a delivery attempt, or of a full retry sequence
// when produced by Client.Deliver.
type Result struct {
	Success    bool          `json:"success"`
	StatusCode int           `json:"statusCode,omitempty"`
	Body       any           `json:"responseBody,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"durationMs"`
	Attempts   int           `json:"attempts"`
	Err        *Error        `json:"error,omitempty"`
}
