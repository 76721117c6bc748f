// Package deadletter retains deliveries that failed terminally or exhausted
// their retry budget, for inspection and manual replay. It makes known
// failures visible; it is not a durable queue and does not guarantee no
// event is ever lost.
package deadletter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/canopyerp/outbound/internal/delivery"
	"github.com/canopyerp/outbound/internal/events"
)

// Entry is one dead-lettered delivery.
type Entry struct {
	ID        string            `json:"id"`
	Payload   *events.Event     `json:"payload"`
	URL       string            `json:"webhookUrl"`
	Headers   map[string]string `json:"headers,omitempty"`
	Secret    string            `json:"-"`
	Attempts  int               `json:"attempts"`
	LastError string            `json:"lastError"`
	FailedAt  time.Time         `json:"failedAt"`
}

// Store holds dead-letter entries in memory. All access is mutex-guarded
// because manual replay arrives from request-handling contexts while the
// background dispatcher appends.
type Store struct {
	exec *delivery.Executor

	mu      sync.Mutex
	entries []*Entry
}

// NewStore creates a store that replays entries through exec.
func NewStore(exec *delivery.Executor) *Store {
	return &Store{exec: exec}
}

// Append records a failed delivery.
func (s *Store) Append(event *events.Event, url string, headers map[string]string, secret string, attempts int, lastErr string) {
	entry := &Entry{
		ID:        uuid.New().String(),
		Payload:   event,
		URL:       url,
		Headers:   headers,
		Secret:    secret,
		Attempts:  attempts,
		LastError: lastErr,
		FailedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	size := len(s.entries)
	s.mu.Unlock()

	log.Warn().
		Str("id", entry.ID).
		Str("url", url).
		Str("event", string(event.Type)).
		Int("attempts", attempts).
		Str("last_error", lastErr).
		Int("dlq_size", size).
		Msg("Delivery dead-lettered")
}

// List returns a snapshot of the entries in append order.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e
	}
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Retry re-executes a single delivery attempt (not the full retry sequence)
// for the entry at index. On success the entry is removed; on failure its
// attempts, lastError, and failedAt are refreshed.
func (s *Store) Retry(ctx context.Context, index int) (*delivery.Result, error) {
	s.mu.Lock()
	if index < 0 || index >= len(s.entries) {
		s.mu.Unlock()
		return nil, fmt.Errorf("dead-letter index %d out of range", index)
	}
	entry := s.entries[index]
	s.mu.Unlock()

	req := &delivery.Request{
		URL:     entry.URL,
		Event:   entry.Payload,
		Headers: entry.Headers,
		Secret:  entry.Secret,
	}
	res := s.exec.Attempt(ctx, req, entry.Attempts+1)

	s.mu.Lock()
	defer s.mu.Unlock()

	// The slice may have shifted while the attempt ran; locate by ID.
	pos := -1
	for i, e := range s.entries {
		if e.ID == entry.ID {
			pos = i
			break
		}
	}
	if pos == -1 {
		return res, nil
	}

	if res.Success {
		s.entries = append(s.entries[:pos], s.entries[pos+1:]...)
		log.Info().
			Str("id", entry.ID).
			Str("url", entry.URL).
			Msg("Dead-letter replay succeeded, entry removed")
		return res, nil
	}

	entry.Attempts++
	entry.LastError = res.Err.Error()
	entry.FailedAt = time.Now().UTC()

	log.Warn().
		Str("id", entry.ID).
		Str("url", entry.URL).
		Int("attempts", entry.Attempts).
		Str("last_error", entry.LastError).
		Msg("Dead-letter replay failed")
	return res, nil
}

// Clear drops every entry and returns how many were removed.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	s.entries = nil
	return n
}

// PruneOlderThan removes entries that failed before the cutoff age and
// returns how many were removed.
func (s *Store) PruneOlderThan(age time.Duration) int {
	cutoff := time.Now().UTC().Add(-age)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.FailedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed
}
