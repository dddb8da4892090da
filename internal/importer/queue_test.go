package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/stacks/internal/parser"
)

func queueRows() []parser.RowRecord {
	return []parser.RowRecord{
		{Index: 1, Title: "Dune", Author: "Frank Herbert", ISBN: "9780441172719"},
		{Index: 2, Title: "Neuromancer", Author: "William Gibson"},
		{Index: 3, Title: "Snow Crash", Author: "Neal Stephenson", ISBN: "9780553380958"},
	}
}

func TestQueueIdentifierBatchOnlyISBNRows(t *testing.T) {
	q := NewQueue(queueRows())

	assert.Equal(t, PhaseIdentifier, q.Phase())
	batch := q.Batch()
	require.Len(t, batch, 2)
	for _, item := range batch {
		assert.True(t, item.Key.IsISBN())
	}
}

func TestQueueFallbackPicksUpMissedAndDeferredRows(t *testing.T) {
	q := NewQueue(queueRows())

	q.MarkResolved(1)
	q.MarkDone(1)
	q.MarkMissed(3)

	assert.Equal(t, PhaseFallback, q.Advance())

	batch := q.Batch()
	require.Len(t, batch, 2)
	indexes := []int{batch[0].Row.Index, batch[1].Row.Index}
	assert.ElementsMatch(t, []int{2, 3}, indexes)
	for _, item := range batch {
		assert.False(t, item.Key.IsISBN(), "fallback lookups are keyed by title/author")
	}
}

func TestQueueCompletesAfterFallback(t *testing.T) {
	q := NewQueue(queueRows())
	q.Advance()
	assert.Equal(t, PhaseCompleted, q.Advance())
	assert.Empty(t, q.Batch())
}

func TestQueueUnresolved(t *testing.T) {
	q := NewQueue(queueRows())
	q.MarkResolved(1)
	q.MarkDone(1)
	q.Advance()
	q.MarkMissed(2)
	q.MarkDone(3)
	q.Advance()

	unresolved := q.Unresolved()
	require.Len(t, unresolved, 1)
	assert.Equal(t, 2, unresolved[0].Index)
}

func TestQueueCancel(t *testing.T) {
	q := NewQueue(queueRows())
	q.Cancel()
	assert.Equal(t, PhaseCancelled, q.Phase())
	assert.True(t, q.Phase().Terminal())
}
