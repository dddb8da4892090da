package importer

import (
	"sync"

	"github.com/lepinkainen/stacks/internal/catalog"
	"github.com/lepinkainen/stacks/internal/parser"
)

// WorkItem is one lookup the engine should perform: a row and the key to
// address the catalog with in the current phase.
type WorkItem struct {
	Row parser.RowRecord
	Key catalog.Key
}

// rowState tracks where a row is in the two-phase schedule.
type rowState int

const (
	rowPending  rowState = iota // not yet attempted in the current phase
	rowResolved                 // catalog metadata obtained
	rowMissed                   // attempted, no result (not found or failed)
	rowDone                     // terminal, already committed or skipped
)

// Queue schedules rows through the two lookup phases: identifier-keyed
// lookups first, then title/author fallback for rows still unresolved.
// Phases never interleave; Advance moves to the next phase only when the
// caller has reported an outcome for every item of the current batch.
type Queue struct {
	mu    sync.Mutex
	rows  []parser.RowRecord
	state map[int]rowState
	phase Phase
}

// NewQueue creates a queue over the session's rows, starting in the
// identifier phase.
func NewQueue(rows []parser.RowRecord) *Queue {
	q := &Queue{
		rows:  rows,
		state: make(map[int]rowState, len(rows)),
		phase: PhaseIdentifier,
	}
	for _, row := range rows {
		q.state[row.Index] = rowPending
	}
	return q
}

// Phase returns the queue's current phase.
func (q *Queue) Phase() Phase {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.phase
}

// Batch returns the lookups for the current phase. Identifier phase:
// every pending row with an ISBN. Fallback phase: every row still
// unresolved that has a title. Rows with nothing to look up in either
// phase are not returned; they surface through Unresolved.
func (q *Queue) Batch() []WorkItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	var items []WorkItem
	for _, row := range q.rows {
		switch q.phase {
		case PhaseIdentifier:
			if q.state[row.Index] == rowPending && row.HasISBN() {
				items = append(items, WorkItem{Row: row, Key: catalog.ISBNKey(row.ISBN)})
			}
		case PhaseFallback:
			if q.state[row.Index] == rowPending && row.Title != "" {
				items = append(items, WorkItem{Row: row, Key: catalog.TitleAuthorKey(row.Title, row.Author)})
			}
		}
	}
	return items
}

// MarkResolved records that the row's lookup succeeded.
func (q *Queue) MarkResolved(rowIndex int) {
	q.setState(rowIndex, rowResolved)
}

// MarkMissed records that the row's lookup finished without a result in
// this phase (not found, or failed after retries). The row becomes
// eligible for the next phase.
func (q *Queue) MarkMissed(rowIndex int) {
	q.setState(rowIndex, rowMissed)
}

// MarkDone records that the row is terminal: committed to storage,
// skipped as a duplicate, or failed for good.
func (q *Queue) MarkDone(rowIndex int) {
	q.setState(rowIndex, rowDone)
}

func (q *Queue) setState(rowIndex int, s rowState) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.state[rowIndex] = s
}

// Advance transitions to the next phase and returns it. Rows missed in
// the finished phase become pending again for the next one; moving past
// the fallback phase completes the queue.
func (q *Queue) Advance() Phase {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch q.phase {
	case PhaseIdentifier:
		for idx, s := range q.state {
			if s == rowMissed || s == rowPending {
				q.state[idx] = rowPending
			}
		}
		q.phase = PhaseFallback
	case PhaseFallback:
		q.phase = PhaseCompleted
	}
	return q.phase
}

// Cancel moves the queue to the cancelled terminal phase.
func (q *Queue) Cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.phase = PhaseCancelled
}

// Unresolved returns the rows that remain without a terminal outcome:
// after the fallback phase these are the rows that failed both lookups
// or never had anything to look up with.
func (q *Queue) Unresolved() []parser.RowRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	var rows []parser.RowRecord
	for _, row := range q.rows {
		if s := q.state[row.Index]; s == rowPending || s == rowMissed {
			rows = append(rows, row)
		}
	}
	return rows
}
