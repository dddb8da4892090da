package resilience

import (
	"testing"
	"time"

	"github.com/lepinkainen/stacks/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetryQueue(maxAttempts int) (*RetryQueue, *time.Time) {
	backoff := NewBackoff(time.Second, time.Minute, 2.0).WithoutJitter()
	q := NewRetryQueue(backoff, maxAttempts, nil)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }
	return q, &now
}

func TestRetryQueuePermanentErrorNotAdded(t *testing.T) {
	q, _ := testRetryQueue(3)

	added := q.Add("isbn:9780000000001", 0, errors.NewStatusError(404, "not found"))
	assert.False(t, added)
	assert.Equal(t, 0, q.Pending())
	assert.Equal(t, 1, q.Stats().Rejected)
}

func TestRetryQueueSchedulesWithBackoff(t *testing.T) {
	q, now := testRetryQueue(3)

	added := q.Add("isbn:9780000000001", 4, errors.NewStatusError(500, "boom"))
	require.True(t, added)
	assert.Equal(t, 1, q.Pending())

	// First attempt schedules at backoff.Delay(1) = 2s; the 2s server-error
	// suggested delay ties with it.
	assert.Empty(t, q.Ready())

	*now = now.Add(time.Second)
	assert.Empty(t, q.Ready(), "entry returned before its eligible time")

	*now = now.Add(time.Second)
	ready := q.Ready()
	require.Len(t, ready, 1)
	assert.Equal(t, "isbn:9780000000001", ready[0].Key)
	assert.Equal(t, 4, ready[0].RowIndex)
	assert.Equal(t, 1, ready[0].Attempts)
}

func TestRetryQueueMaxAttemptsExhaustion(t *testing.T) {
	q, _ := testRetryQueue(3)
	err := errors.NewStatusError(500, "boom")

	for i := 1; i <= 3; i++ {
		if !q.Add("key", 0, err) {
			t.Fatalf("attempt %d rejected before max", i)
		}
	}

	// The attempt that would exceed the max removes the entry.
	assert.False(t, q.Add("key", 0, err))
	assert.Equal(t, 0, q.Pending())

	stats := q.Stats()
	assert.Equal(t, 3, stats.TotalAttempts)
	assert.Equal(t, 1, stats.Exhausted)
}

func TestRetryQueueRateLimitDelayWins(t *testing.T) {
	q, now := testRetryQueue(5)

	added := q.Add("key", 0, errors.NewRateLimitErrorWithRetry("slow down", 30*time.Second))
	require.True(t, added)

	// Backoff would allow a retry after 2s, but the server said 30s.
	*now = now.Add(10 * time.Second)
	assert.Empty(t, q.Ready())

	*now = now.Add(20 * time.Second)
	assert.Len(t, q.Ready(), 1)
}

func TestRetryQueueRecordSuccess(t *testing.T) {
	q, _ := testRetryQueue(3)

	q.Add("key", 0, errors.NewStatusError(500, "boom"))
	q.RecordSuccess("key")

	assert.Equal(t, 0, q.Pending())
	assert.Equal(t, 1, q.Stats().Succeeded)

	// Recording success for an unknown key is a no-op.
	q.RecordSuccess("other")
	assert.Equal(t, 1, q.Stats().Succeeded)
}

func TestRetryQueueNextEligibleAt(t *testing.T) {
	q, now := testRetryQueue(3)

	_, found := q.NextEligibleAt()
	assert.False(t, found)

	q.Add("a", 0, errors.NewStatusError(500, "boom"))
	*now = now.Add(time.Minute)
	q.Add("b", 1, errors.NewStatusError(500, "boom"))

	at, found := q.NextEligibleAt()
	require.True(t, found)
	assert.True(t, at.Before(now.Add(time.Minute)), "earliest entry should come from the first add")
}

func TestRetryQueueStatsCircuitFlag(t *testing.T) {
	backoff := NewBackoff(time.Second, time.Minute, 2.0).WithoutJitter()
	breaker := NewBreaker(BreakerConfig{
		Name:              "catalog",
		FailureThreshold:  1,
		RecoveryTimeout:   time.Minute,
		HalfOpenSuccesses: 1,
	})
	q := NewRetryQueue(backoff, 3, breaker)

	assert.False(t, q.Stats().CircuitOpen)

	done, ok := breaker.Allow()
	require.True(t, ok)
	done(false)

	assert.True(t, q.Stats().CircuitOpen)
}
