package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Thresholds for concurrency recommendations.
const (
	concurrencyGrowSuccessRate = 0.90
	concurrencyGrowLatency     = 1 * time.Second
	concurrencyShrinkFailRate  = 0.30
	concurrencyShrinkLatency   = 2 * time.Second
)

// Snapshot is a window of recent lookup outcomes.
type Snapshot struct {
	Successes     int
	Failures      int
	Throttled     int
	AvgLatency    time.Duration
	AvgQueueDepth float64
}

// Total returns the number of samples in the window.
func (s Snapshot) Total() int {
	return s.Successes + s.Failures
}

// SuccessRate returns the fraction of successful lookups, 1.0 for an
// empty window.
func (s Snapshot) SuccessRate() float64 {
	total := s.Total()
	if total == 0 {
		return 1.0
	}
	return float64(s.Successes) / float64(total)
}

// MonitorConfig bounds the concurrency recommendations.
type MonitorConfig struct {
	MinConcurrency     int
	MaxConcurrency     int
	InitialConcurrency int
	// MinSamples is the window size required before any adjustment.
	MinSamples int
	// ThrottlePenalty is the number of extra steps removed when any
	// throttled response appears in the window. Throttling is the
	// collaborator's explicit backpressure, so it weighs more than an
	// ordinary failure.
	ThrottlePenalty int
}

// Monitor accumulates lookup outcomes into a rolling window and turns them
// into concurrency recommendations. All methods are safe for concurrent
// use; the window resets each time a recommendation is computed.
type Monitor struct {
	mu  sync.Mutex
	cfg MonitorConfig

	successes      int
	failures       int
	throttled      int
	totalLatency   time.Duration
	latencySamples int
	depthSum       int
	depthSamples   int

	concurrency int

	// lifetime totals for the final report
	allRequests  int
	allSuccesses int
	allThrottled int
}

// NewMonitor creates a performance monitor starting at the configured
// initial concurrency.
func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.MinConcurrency < 1 {
		cfg.MinConcurrency = 1
	}
	if cfg.MaxConcurrency < cfg.MinConcurrency {
		cfg.MaxConcurrency = cfg.MinConcurrency
	}
	if cfg.MinSamples < 1 {
		cfg.MinSamples = 1
	}
	if cfg.ThrottlePenalty < 0 {
		cfg.ThrottlePenalty = 0
	}

	concurrency := cfg.InitialConcurrency
	if concurrency < cfg.MinConcurrency {
		concurrency = cfg.MinConcurrency
	}
	if concurrency > cfg.MaxConcurrency {
		concurrency = cfg.MaxConcurrency
	}

	return &Monitor{cfg: cfg, concurrency: concurrency}
}

// RecordSuccess adds a successful lookup with its observed latency.
func (m *Monitor) RecordSuccess(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.successes++
	m.allRequests++
	m.allSuccesses++
	m.addLatencyLocked(latency)
}

// RecordFailure adds a failed lookup. throttled marks explicit
// backpressure responses, which weigh more heavily than other failures.
func (m *Monitor) RecordFailure(latency time.Duration, throttled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures++
	m.allRequests++
	if throttled {
		m.throttled++
		m.allThrottled++
	}
	m.addLatencyLocked(latency)
}

func (m *Monitor) addLatencyLocked(latency time.Duration) {
	if latency <= 0 {
		return
	}
	m.totalLatency += latency
	m.latencySamples++
}

// UpdateQueueDepth records the current pending-work depth.
func (m *Monitor) UpdateQueueDepth(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depthSum += n
	m.depthSamples++
}

// Snapshot returns the current window without resetting it.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Monitor) snapshotLocked() Snapshot {
	snap := Snapshot{
		Successes: m.successes,
		Failures:  m.failures,
		Throttled: m.throttled,
	}
	if m.latencySamples > 0 {
		snap.AvgLatency = m.totalLatency / time.Duration(m.latencySamples)
	}
	if m.depthSamples > 0 {
		snap.AvgQueueDepth = float64(m.depthSum) / float64(m.depthSamples)
	}
	return snap
}

// Reset clears the current window. Lifetime totals are kept.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

func (m *Monitor) resetLocked() {
	m.successes = 0
	m.failures = 0
	m.throttled = 0
	m.totalLatency = 0
	m.latencySamples = 0
	m.depthSum = 0
	m.depthSamples = 0
}

// RecommendedConcurrency evaluates the current window, steps the
// recommended worker count up or down within bounds, resets the window
// and returns the new recommendation. With too few samples the previous
// recommendation stands.
func (m *Monitor) RecommendedConcurrency() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshotLocked()
	if snap.Total() < m.cfg.MinSamples {
		return m.concurrency
	}

	next := m.concurrency
	successRate := snap.SuccessRate()
	failureRate := 1 - successRate

	switch {
	case successRate >= concurrencyGrowSuccessRate && snap.AvgLatency <= concurrencyGrowLatency:
		next++
	case failureRate > concurrencyShrinkFailRate || snap.AvgLatency > concurrencyShrinkLatency:
		next--
	}

	// Throttling applies an extra penalty on top of any failure-driven step.
	if snap.Throttled > 0 {
		next -= m.cfg.ThrottlePenalty
	}

	if next < m.cfg.MinConcurrency {
		next = m.cfg.MinConcurrency
	}
	if next > m.cfg.MaxConcurrency {
		next = m.cfg.MaxConcurrency
	}

	m.concurrency = next
	m.resetLocked()
	return next
}

// ReduceConcurrency drops the current recommendation by steps, floored
// at the configured minimum. Used for external pressure signals
// (backgrounding, memory warnings) that bypass the window evaluation.
func (m *Monitor) ReduceConcurrency(steps int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.concurrency -= steps
	if m.concurrency < m.cfg.MinConcurrency {
		m.concurrency = m.cfg.MinConcurrency
	}
	return m.concurrency
}

// Concurrency returns the current recommendation without re-evaluating.
func (m *Monitor) Concurrency() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.concurrency
}

// Report renders a human-readable summary for diagnostics. It is not used
// by the control loop.
func (m *Monitor) Report() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	successRate := 1.0
	if m.allRequests > 0 {
		successRate = float64(m.allSuccesses) / float64(m.allRequests)
	}

	var avgLatency time.Duration
	if m.latencySamples > 0 {
		avgLatency = m.totalLatency / time.Duration(m.latencySamples)
	}

	return fmt.Sprintf(
		"requests=%d success_rate=%.1f%% throttled=%d avg_latency=%s concurrency=%d",
		m.allRequests, successRate*100, m.allThrottled, avgLatency, m.concurrency,
	)
}
