package ratelimit

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testMonitorConfig() MonitorConfig {
	return MonitorConfig{
		MinConcurrency:     3,
		MaxConcurrency:     20,
		InitialConcurrency: 5,
		MinSamples:         5,
		ThrottlePenalty:    1,
	}
}

func TestMonitorHoldsBelowMinSamples(t *testing.T) {
	m := NewMonitor(testMonitorConfig())

	m.RecordSuccess(100 * time.Millisecond)
	m.RecordSuccess(100 * time.Millisecond)

	assert.Equal(t, 5, m.RecommendedConcurrency())
}

func TestMonitorGrowsOnHealthyWindow(t *testing.T) {
	m := NewMonitor(testMonitorConfig())

	for i := 0; i < 10; i++ {
		m.RecordSuccess(200 * time.Millisecond)
	}

	assert.Equal(t, 6, m.RecommendedConcurrency())

	// The window was consumed; without new samples the recommendation holds.
	assert.Equal(t, 6, m.RecommendedConcurrency())
}

func TestMonitorShrinksOnFailures(t *testing.T) {
	m := NewMonitor(testMonitorConfig())

	for i := 0; i < 6; i++ {
		m.RecordFailure(100*time.Millisecond, false)
	}
	for i := 0; i < 4; i++ {
		m.RecordSuccess(100 * time.Millisecond)
	}

	assert.Equal(t, 4, m.RecommendedConcurrency())
}

func TestMonitorShrinksOnHighLatency(t *testing.T) {
	m := NewMonitor(testMonitorConfig())

	for i := 0; i < 10; i++ {
		m.RecordSuccess(5 * time.Second)
	}

	assert.Equal(t, 4, m.RecommendedConcurrency())
}

func TestMonitorThrottlePenaltyStacks(t *testing.T) {
	m := NewMonitor(testMonitorConfig())

	// Failure-heavy window with throttling: one step down for failures
	// plus one penalty step.
	for i := 0; i < 6; i++ {
		m.RecordFailure(100*time.Millisecond, true)
	}
	for i := 0; i < 4; i++ {
		m.RecordSuccess(100 * time.Millisecond)
	}

	assert.Equal(t, 3, m.RecommendedConcurrency())
}

func TestMonitorThrottlePenaltyAppliesOnHealthyWindow(t *testing.T) {
	m := NewMonitor(testMonitorConfig())

	// Even a mostly-successful window steps down when throttled.
	for i := 0; i < 20; i++ {
		m.RecordSuccess(100 * time.Millisecond)
	}
	m.RecordFailure(100*time.Millisecond, true)

	// Success rate 20/21 > 0.9 would grow by one, throttle pulls one back.
	assert.Equal(t, 5, m.RecommendedConcurrency())
}

func TestMonitorRespectsBounds(t *testing.T) {
	cfg := testMonitorConfig()
	cfg.InitialConcurrency = 3
	m := NewMonitor(cfg)

	for round := 0; round < 5; round++ {
		for i := 0; i < 10; i++ {
			m.RecordFailure(100*time.Millisecond, true)
		}
		got := m.RecommendedConcurrency()
		if got < 3 {
			t.Fatalf("concurrency %d fell below floor", got)
		}
	}

	cfg.InitialConcurrency = 20
	m = NewMonitor(cfg)
	for round := 0; round < 5; round++ {
		for i := 0; i < 10; i++ {
			m.RecordSuccess(100 * time.Millisecond)
		}
		got := m.RecommendedConcurrency()
		if got > 20 {
			t.Fatalf("concurrency %d exceeded cap", got)
		}
	}
}

func TestMonitorSnapshot(t *testing.T) {
	m := NewMonitor(testMonitorConfig())

	m.RecordSuccess(100 * time.Millisecond)
	m.RecordSuccess(300 * time.Millisecond)
	m.RecordFailure(200*time.Millisecond, true)
	m.UpdateQueueDepth(4)
	m.UpdateQueueDepth(8)

	snap := m.Snapshot()
	assert.Equal(t, 2, snap.Successes)
	assert.Equal(t, 1, snap.Failures)
	assert.Equal(t, 1, snap.Throttled)
	assert.Equal(t, 200*time.Millisecond, snap.AvgLatency)
	assert.Equal(t, 6.0, snap.AvgQueueDepth)
	assert.InDelta(t, 0.666, snap.SuccessRate(), 0.01)
}

func TestMonitorReport(t *testing.T) {
	m := NewMonitor(testMonitorConfig())

	m.RecordSuccess(100 * time.Millisecond)
	m.RecordFailure(100*time.Millisecond, true)

	report := m.Report()
	if !strings.Contains(report, "requests=2") {
		t.Fatalf("report missing request count: %s", report)
	}
	if !strings.Contains(report, "throttled=1") {
		t.Fatalf("report missing throttle count: %s", report)
	}
}
