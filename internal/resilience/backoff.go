package resilience

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes the delay before a retry attempt:
//
//	delay(n) = min(base * multiplier^n, max) * jitter
//
// where jitter is drawn uniformly from [JitterLow, JitterHigh]. The
// computation has no hidden state beyond the single random draw, so it is
// independently testable with a fixed Rand.
type Backoff struct {
	Base       time.Duration
	Max        time.Duration
	Multiplier float64
	JitterLow  float64
	JitterHigh float64
	// Rand returns a uniform draw in [0, 1). Defaults to math/rand.
	Rand func() float64
}

// NewBackoff creates a Backoff with the default narrow jitter range.
func NewBackoff(base, max time.Duration, multiplier float64) Backoff {
	return Backoff{
		Base:       base,
		Max:        max,
		Multiplier: multiplier,
		JitterLow:  0.8,
		JitterHigh: 1.2,
	}
}

// WithoutJitter returns a copy with a fixed jitter factor of 1, for
// deterministic scheduling in tests.
func (b Backoff) WithoutJitter() Backoff {
	b.JitterLow = 1
	b.JitterHigh = 1
	return b
}

// Delay returns the backoff delay for the given attempt number (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	d := float64(b.Base) * math.Pow(b.Multiplier, float64(attempt))
	if capped := float64(b.Max); d > capped {
		d = capped
	}

	return time.Duration(d * b.jitter())
}

func (b Backoff) jitter() float64 {
	if b.JitterHigh <= b.JitterLow {
		return b.JitterLow
	}

	draw := rand.Float64
	if b.Rand != nil {
		draw = b.Rand
	}
	return b.JitterLow + draw()*(b.JitterHigh-b.JitterLow)
}
