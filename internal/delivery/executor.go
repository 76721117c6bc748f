package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Webhook request headers attached to every delivery.
const (
	HeaderEvent     = "X-Webhook-Event"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderAttempt   = "X-Webhook-Attempt"
	HeaderSignature = "X-Webhook-Signature"

	userAgent      = "canopyerp-outbound/0.1"
	defaultTimeout = 30 * time.Second
)

// Executor performs single webhook delivery attempts. It holds no mutable
// state beyond the HTTP client and is safe for concurrent use.
type Executor struct {
	client  *http.Client
	limiter *HostLimiter
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithHTTPClient replaces the underlying HTTP client (tests use this).
func WithHTTPClient(c *http.Client) ExecutorOption {
	return func(e *Executor) { e.client = c }
}

// WithLimiter applies a per-host outbound rate limiter.
func WithLimiter(l *HostLimiter) ExecutorOption {
	return func(e *Executor) { e.limiter = l }
}

// NewExecutor creates an executor. Per-attempt timeouts come from the
// Request, so the client itself carries none.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		client: &http.Client{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Attempt performs exactly one POST to the subscriber. attempt is 1-based
// and only used for the X-Webhook-Attempt header. The result classifies the
// outcome: 2xx success, 4xx (except 408/429) terminal, everything else
// retryable.
func (e *Executor) Attempt(ctx context.Context, req *Request, attempt int) *Result {
	body, err := json.Marshal(req.Event)
	if err != nil {
		return &Result{
			Attempts: 1,
			Err: &Error{
				Code:      CodeDeliveryFailed,
				Message:   fmt.Sprintf("encoding payload: %v", err),
				Retryable: false,
			},
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if e.limiter != nil {
		if u, perr := url.Parse(req.URL); perr == nil {
			if werr := e.limiter.Wait(ctx, u.Host); werr != nil {
				return failure(0, CodeDeliveryFailed, fmt.Sprintf("rate limit wait: %v", werr), true)
			}
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(body))
	if err != nil {
		return failure(0, CodeDeliveryFailed, fmt.Sprintf("creating request: %v", err), false)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set(HeaderEvent, string(req.Event.Type))
	httpReq.Header.Set(HeaderTimestamp, time.Now().UTC().Format(time.RFC3339))
	httpReq.Header.Set(HeaderAttempt, strconv.Itoa(attempt))
	if req.Secret != "" {
		httpReq.Header.Set(HeaderSignature, Sign(body, req.Secret))
	}

	start := time.Now()
	resp, err := e.client.Do(httpReq)
	elapsed := time.Since(start)

	if err != nil {
		log.Debug().
			Err(err).
			Str("url", req.URL).
			Str("event", string(req.Event.Type)).
			Int("attempt", attempt).
			Msg("Webhook attempt failed")
		res := failure(elapsed, CodeDeliveryFailed, fmt.Sprintf("request failed: %v", err), true)
		return res
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Result{
			Success:    true,
			StatusCode: resp.StatusCode,
			Body:       parseBody(respBody),
			Duration:   elapsed,
			DurationMs: elapsed.Milliseconds(),
			Attempts:   1,
		}
	}

	res := failure(elapsed, HTTPCode(resp.StatusCode), truncate(string(respBody), 512), retryableStatus(resp.StatusCode))
	res.StatusCode = resp.StatusCode
	return res
}

// retryableStatus reports whether another attempt can change the outcome.
// 408 and 429 are transient despite being 4xx; every other 4xx means the
// receiver rejected the payload and retrying cannot fix it.
func retryableStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 400 && status < 500:
		return false
	default:
		return true
	}
}

func failure(elapsed time.Duration, code, msg string, retryable bool) *Result {
	return &Result{
		Duration:   elapsed,
		DurationMs: elapsed.Milliseconds(),
		Attempts:   1,
		Err: &Error{
			Code:      code,
			Message:   msg,
			Retryable: retryable,
		},
	}
}

// parseBody decodes the response as JSON, falling back to the raw text.
func parseBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var parsed any
	if err := json.Unmarshal(body, &parsed); err == nil {
		return parsed
	}
	return string(body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
