package resilience

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// RetryRequest tracks one failed-but-retryable lookup waiting for its next
// attempt. Key is the canonical lookup key, RowIndex the originating
// spreadsheet row.
type RetryRequest struct {
	Key          string
	RowIndex     int
	Attempts     int
	LastError    Classified
	NextEligible time.Time
}

// RetryStats summarizes retry queue activity for diagnostics and the final
// import result.
type RetryStats struct {
	Pending       int
	CircuitOpen   bool
	TotalAttempts int
	Succeeded     int
	Exhausted     int
	Rejected      int
}

// RetryQueue holds retryable lookups with their scheduled retry times. It
// only tracks scheduling metadata; it never performs lookups itself. All
// methods are safe for concurrent use.
type RetryQueue struct {
	mu          sync.Mutex
	entries     map[string]*RetryRequest
	backoff     Backoff
	maxAttempts int
	breaker     *Breaker

	totalAttempts int
	succeeded     int
	exhausted     int
	rejected      int

	now func() time.Time
}

// NewRetryQueue creates a retry queue bounded by maxAttempts per key. The
// breaker is only queried for stats, never driven from here.
func NewRetryQueue(backoff Backoff, maxAttempts int, breaker *Breaker) *RetryQueue {
	return &RetryQueue{
		entries:     make(map[string]*RetryRequest),
		backoff:     backoff,
		maxAttempts: maxAttempts,
		breaker:     breaker,
		now:         time.Now,
	}
}

// Add classifies err and, when retryable, schedules a retry for key.
// Returns false when the caller should stop retrying this key: the error
// is permanent, or the attempt budget is exhausted (in which case the
// entry is dropped).
func (q *RetryQueue) Add(key string, rowIndex int, err error) bool {
	return q.AddClassified(key, rowIndex, Classify(err))
}

// AddClassified is Add for an error the caller already classified.
func (q *RetryQueue) AddClassified(key string, rowIndex int, ce Classified) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !ce.Retryable {
		q.rejected++
		delete(q.entries, key)
		return false
	}

	entry, ok := q.entries[key]
	if !ok {
		entry = &RetryRequest{Key: key, RowIndex: rowIndex}
		q.entries[key] = entry
	}

	if entry.Attempts+1 > q.maxAttempts {
		delete(q.entries, key)
		q.exhausted++
		slog.Debug("Retry attempts exhausted", "key", key, "attempts", entry.Attempts)
		return false
	}

	entry.Attempts++
	entry.LastError = ce
	q.totalAttempts++

	delay := q.backoff.Delay(entry.Attempts)
	// An explicit retry-after from the collaborator wins over our own
	// schedule; other suggested delays are bases the backoff already
	// covers.
	if ce.Category == CategoryRateLimited && ce.SuggestedDelay > delay {
		delay = ce.SuggestedDelay
	}
	entry.NextEligible = q.now().Add(delay)

	return true
}

// Ready returns copies of all entries whose retry time has arrived, oldest
// first. Entries stay queued until the caller reports an outcome via
// RecordSuccess or another Add.
func (q *RetryQueue) Ready() []RetryRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var ready []RetryRequest
	for _, entry := range q.entries {
		if !entry.NextEligible.After(now) {
			ready = append(ready, *entry)
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		return ready[i].NextEligible.Before(ready[j].NextEligible)
	})

	return ready
}

// NextEligibleAt returns the earliest scheduled retry time, or false when
// the queue is empty.
func (q *RetryQueue) NextEligibleAt() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var earliest time.Time
	found := false
	for _, entry := range q.entries {
		if !found || entry.NextEligible.Before(earliest) {
			earliest = entry.NextEligible
			found = true
		}
	}
	return earliest, found
}

// RecordSuccess removes key from the queue after a successful retry.
func (q *RetryQueue) RecordSuccess(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.entries[key]; ok {
		delete(q.entries, key)
		q.succeeded++
	}
}

// Remove drops key without counting it as a success.
func (q *RetryQueue) Remove(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.entries, key)
}

// Pending returns the number of queued retries.
func (q *RetryQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Stats returns a snapshot of queue activity. The circuit-open flag is
// read from the associated breaker, which this queue does not own.
func (q *RetryQueue) Stats() RetryStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := RetryStats{
		Pending:       len(q.entries),
		TotalAttempts: q.totalAttempts,
		Succeeded:     q.succeeded,
		Exhausted:     q.exhausted,
		Rejected:      q.rejected,
	}
	if q.breaker != nil {
		stats.CircuitOpen = q.breaker.State() == BreakerOpen
	}
	return stats
}
