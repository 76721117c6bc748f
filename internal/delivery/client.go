package delivery

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Default retry budget.
const (
	DefaultMaxRetries = 3
)

// Client wraps the Executor with bounded retry and backoff, turning a
// sequence of attempts into one final Result.
type Client struct {
	exec       *Executor
	maxRetries int
	backoff    Backoff
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMaxRetries overrides the retry budget (retries after the first
// attempt, so maxRetries=3 allows 4 attempts total).
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoff replaces the delay schedule between attempts.
func WithBackoff(b Backoff) ClientOption {
	return func(c *Client) { c.backoff = b }
}

// WithExecutor replaces the attempt executor.
func WithExecutor(e *Executor) ClientOption {
	return func(c *Client) { c.exec = e }
}

// NewClient creates a delivery client with the default retry budget and
// backoff schedule.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		exec:       NewExecutor(),
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoff(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deliver attempts the request until success, a terminal failure, or retry
// exhaustion, sleeping per the backoff schedule between attempts. The
// returned Result is the last attempt's, with Attempts set to the total
// count; when every attempt was a retryable failure the error code is
// replaced with MAX_RETRIES_EXCEEDED so callers can tell exhaustion apart
// from a single terminal rejection.
func (c *Client) Deliver(ctx context.Context, req *Request) *Result {
	var res *Result

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		res = c.exec.Attempt(ctx, req, attempt+1)
		res.Attempts = attempt + 1

		if res.Success || !res.Err.Retryable {
			return res
		}

		if attempt == c.maxRetries {
			break
		}

		delay := c.backoff.Delay(attempt)
		log.Debug().
			Str("url", req.URL).
			Str("event", string(req.Event.Type)).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Str("code", res.Err.Code).
			Msg("Delivery attempt failed, backing off")

		select {
		case <-ctx.Done():
			res.Err = &Error{
				Code:      CodeDeliveryFailed,
				Message:   "delivery canceled: " + ctx.Err().Error(),
				Retryable: false,
			}
			return res
		case <-time.After(delay):
		}
	}

	res.Err = &Error{
		Code:      CodeMaxRetriesExceeded,
		Message:   "max retries exceeded: " + res.Err.Message,
		Retryable: false,
	}
	return res
}

// MaxRetries returns the configured retry budget.
func (c *Client) MaxRetries() int {
	return c.maxRetries
}
