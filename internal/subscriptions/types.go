package subscriptions

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/canopyerp/outbound/internal/events"
)

// Subscription binds one or more event types to a delivery target URL.
// Event entries may be exact types ("ticket.created") or glob patterns
// ("ticket.*"). Subscriptions are deactivated, never deleted, by this
// subsystem.
type Subscription struct {
	ID       string            `yaml:"id" json:"id"`
	URL      string            `yaml:"url" json:"url"`
	Events   []string          `yaml:"events" json:"events"`
	Headers  map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Secret   string            `yaml:"secret,omitempty" json:"-"`
	Active   bool              `yaml:"active" json:"active"`
	TenantID string            `yaml:"tenant_id,omitempty" json:"tenantId,omitempty"`

	compiled []glob.Glob
}

// Compile parses the event patterns. Sources call this once at load time so
// Matches stays read-only and safe under concurrent fan-out.
func (s *Subscription) Compile() error {
	s.compiled = s.compiled[:0]
	for _, pattern := range s.Events {
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return fmt.Errorf("subscription %s: compiling pattern %q: %w", s.ID, pattern, err)
		}
		s.compiled = append(s.compiled, g)
	}
	return nil
}

// Matches reports whether the subscription is interested in the event type.
// It does not consult Active; the registry filters inactive subscriptions.
func (s *Subscription) Matches(eventType events.Type) bool {
	if len(s.compiled) == len(s.Events) && len(s.compiled) > 0 {
		for _, g := range s.compiled {
			if g.Match(string(eventType)) {
				return true
			}
		}
		return false
	}
	for _, e := range s.Events {
		if e == string(eventType) {
			return true
		}
	}
	return false
}
