// Package ratelimit provides the adaptive throughput controls for outbound
// catalog calls: a token-bucket limiter whose rate moves inside configured
// bounds, and a performance monitor that recommends concurrency and rate
// adjustments from observed outcomes.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Thresholds for rate adaptation. Rate grows on sustained healthy traffic
// and halves under failures or slow responses.
const (
	rateGrowFactor     = 1.25
	rateShrinkFactor   = 0.5
	healthySuccessRate = 0.95
	healthyLatency     = 500 * time.Millisecond
	unhealthyRate      = 0.80
	unhealthyLatency   = 2 * time.Second
)

// Limiter wraps rate.Limiter with a name for logging/debugging and keeps
// the current permitted rate inside [min, max]. The rate is adjusted only
// through SetRate/AdaptRate, which serialize against each other.
type Limiter struct {
	limiter *rate.Limiter
	name    string

	mu      sync.Mutex
	current float64
	min     float64
	max     float64
}

// New creates an adaptive rate limiter starting at initial requests per
// second, clamped to [min, max]. The burst size equals the ceiling of the
// maximum rate, allowing short bursts without exceeding the sustained rate.
func New(name string, initial, min, max float64) *Limiter {
	if min <= 0 {
		min = 1
	}
	if max < min {
		max = min
	}
	initial = clamp(initial, min, max)

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(initial), burstFor(max)),
		name:    name,
		current: initial,
		min:     min,
		max:     max,
	}
}

func burstFor(max float64) int {
	b := int(max)
	if b < 1 {
		b = 1
	}
	return b
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Wait blocks until the rate limiter allows a request to proceed.
// Returns an error if the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", l.name, err)
	}
	return nil
}

// Allow reports whether a request can proceed without blocking.
// Use this for non-blocking checks; prefer Wait for most cases.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Rate returns the current permitted rate in requests per second.
func (l *Limiter) Rate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// SetRate changes the permitted rate, clamped to the configured bounds.
func (l *Limiter) SetRate(rps float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setRateLocked(rps)
}

func (l *Limiter) setRateLocked(rps float64) {
	l.current = clamp(rps, l.min, l.max)
	l.limiter.SetLimit(rate.Limit(l.current))
}

// AdaptRate adjusts the permitted rate from observed traffic health:
// high success rate with low latency grows the rate, elevated failures or
// slow responses shrink it. The result always stays within bounds.
func (l *Limiter) AdaptRate(successRate float64, avgLatency time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case successRate >= healthySuccessRate && avgLatency <= healthyLatency:
		l.setRateLocked(l.current * rateGrowFactor)
	case successRate < unhealthyRate || avgLatency > unhealthyLatency:
		l.setRateLocked(l.current * rateShrinkFactor)
	}
}

// Name returns the name of this rate limiter.
func (l *Limiter) Name() string {
	return l.name
}
