package delivery

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes the delay before retry attempt n (zero-indexed: attempt 0
// is the delay after the first failed attempt). Implementations are stateless
// and safe for concurrent use.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// Constant always waits the same interval.
type Constant struct {
	Interval time.Duration
}

func (c Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// Exponential doubles the delay each attempt, capped at Max:
// min(Initial * 2^attempt, Max).
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

func (e Exponential) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := time.Duration(float64(e.Initial) * math.Pow(2, float64(attempt)))
	if e.Max > 0 && (d > e.Max || d <= 0) {
		return e.Max
	}
	return d
}

// ExponentialJitter applies full jitter to an exponential base, spreading
// retries from many subscribers that failed at the same moment.
type ExponentialJitter struct {
	Initial time.Duration
	Max     time.Duration
}

func (e ExponentialJitter) Delay(attempt int) time.Duration {
	base := Exponential{Initial: e.Initial, Max: e.Max}.Delay(attempt)
	return time.Duration(rand.Float64() * float64(base)) //nolint:gosec // jitter does not need crypto rand
}

// DefaultBackoff is the schedule used unless configured otherwise:
// 1s, 2s, 4s, 8s, capped at 10s, no jitter.
func DefaultBackoff() Backoff {
	return Exponential{Initial: time.Second, Max: 10 * time.Second}
}
