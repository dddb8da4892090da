package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lepinkainen/stacks/internal/cmdutil"
	"github.com/lepinkainen/stacks/internal/parser"
	"github.com/lepinkainen/stacks/internal/ratelimit"
	"github.com/lepinkainen/stacks/internal/resilience"
)

// BookStore is the durable destination for merged records, with the
// existence checks duplicate detection needs. The library database
// implements it.
type BookStore interface {
	InsertBooks(records []map[string]any) error
	ExistsByISBN(isbn string) (bool, error)
	ExistsByCatalogID(catalogID string) (bool, error)
	ExistsByTitleAuthor(title, author string) (bool, error)
}

// CoordinatorConfig wires a coordinator's collaborators.
type CoordinatorConfig struct {
	Session Session
	Engine  *Engine
	Merger  *Merger
	States  *StateManager
	Store   BookStore
	Monitor *ratelimit.Monitor
	Retries *resilience.RetryQueue
	// CheckpointEvery persists state after this many terminal rows.
	CheckpointEvery int
}

// Coordinator drives one import run: phases, merging, duplicate
// detection, checkpointing and the progress event stream.
type Coordinator struct {
	session         Session
	queue           *Queue
	engine          *Engine
	merger          *Merger
	states          *StateManager
	store           BookStore
	monitor         *ratelimit.Monitor
	retries         *resilience.RetryQueue
	checkpointEvery int

	mu              sync.Mutex
	progress        Progress
	completed       map[int]bool
	lastFailure     map[int]resilience.Classified
	rowFailures     []RowFailure
	imported        []Book
	dups            DuplicateCounts
	sinceCheckpoint int

	events  chan Event
	started time.Time
}

// NewCoordinator creates a coordinator for a fresh session.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	c := newCoordinator(cfg)
	c.progress = Progress{
		SessionID: cfg.Session.ID,
		TotalRows: len(cfg.Session.Rows),
		Phase:     PhaseIdentifier,
	}
	return c
}

// ResumeCoordinator reconstructs a coordinator from a checkpoint. Rows
// already committed are never looked up or written again.
func ResumeCoordinator(cfg CoordinatorConfig, state *PersistedState) *Coordinator {
	cfg.Session = state.Session
	c := newCoordinator(cfg)
	c.progress = state.Progress
	for _, idx := range state.CompletedRows {
		c.completed[idx] = true
		c.queue.MarkDone(idx)
	}
	slog.Info("Resuming import",
		"session", state.Session.ID,
		"phase", state.Progress.Phase.String(),
		"processed", state.Progress.ProcessedRows,
		"total", state.Progress.TotalRows)
	return c
}

func newCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 10
	}
	if cfg.Merger == nil {
		cfg.Merger = &Merger{}
	}
	c := &Coordinator{
		session:         cfg.Session,
		queue:           NewQueue(cfg.Session.Rows),
		engine:          cfg.Engine,
		merger:          cfg.Merger,
		states:          cfg.States,
		store:           cfg.Store,
		monitor:         cfg.Monitor,
		retries:         cfg.Retries,
		checkpointEvery: cfg.CheckpointEvery,
		completed:       make(map[int]bool),
		lastFailure:     make(map[int]resilience.Classified),
		events:          make(chan Event, 64),
	}
	if c.engine != nil && c.engine.onStall == nil {
		c.engine.onStall = c.emitStalled
	}
	return c
}

// Events returns the progress stream. It closes after the final
// EventDone.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// Signal reacts to an external lifecycle event: checkpoint now, and
// shed concurrency when the signal indicates resource pressure.
func (c *Coordinator) Signal(sig Signal) {
	slog.Info("Lifecycle signal received", "signal", sig.String())
	if steps := sig.sheddingSteps(); steps > 0 && c.monitor != nil {
		newConcurrency := c.monitor.ReduceConcurrency(steps)
		slog.Info("Reduced concurrency", "signal", sig.String(), "concurrency", newConcurrency)
	}
	if err := c.checkpoint(); err != nil {
		slog.Error("Failed to checkpoint on lifecycle signal", "signal", sig.String(), "error", err)
	}
}

// Run executes the import to completion or cancellation and returns the
// terminal result. The events channel is closed before Run returns.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	c.started = time.Now()
	defer close(c.events)

	c.emitProgress("")

	for {
		phase := c.queue.Phase()
		if phase.Terminal() {
			break
		}
		// A resumed run may rejoin mid-schedule; skip phases the
		// checkpoint already finished.
		if c.currentPhase() > phase {
			c.queue.Advance()
			continue
		}

		items := c.queue.Batch()
		slog.Info("Starting lookup phase", "phase", phase.String(), "lookups", len(items))
		if err := c.engine.Run(ctx, items, c.handleOutcome); err != nil {
			return c.finishCancelled(err)
		}

		next := c.queue.Advance()
		c.setPhase(next)
		if err := c.checkpoint(); err != nil {
			slog.Error("Failed to checkpoint at phase boundary", "error", err)
		}
		c.emit(Event{Kind: EventPhaseChange, Progress: c.snapshot(), Message: next.String()})
	}

	if err := c.finalizeUnresolved(ctx); err != nil {
		return c.finishCancelled(err)
	}

	result := c.buildResult(false)
	if err := c.states.Delete(c.session.ID); err != nil {
		slog.Warn("Failed to delete completed import state", "session", c.session.ID, "error", err)
	}
	c.emit(Event{Kind: EventDone, Progress: c.snapshot(), Result: result})
	slog.Info("Import finished",
		"session", c.session.ID,
		"successful", result.Successful,
		"failed", result.Failed,
		"duplicates", result.Duplicates.Total(),
		"elapsed", result.Elapsed)
	return result, nil
}

// handleOutcome processes one terminal lookup outcome. Called serially
// by the engine.
func (c *Coordinator) handleOutcome(o Outcome) {
	idx := o.Row.Row.Index
	phase := c.queue.Phase()

	switch {
	case o.Success():
		c.mu.Lock()
		delete(c.lastFailure, idx)
		c.mu.Unlock()
		if err := c.commitRow(o.Row.Row.Index, o); err != nil {
			slog.Error("Failed to write book", "row", idx, "error", err)
			c.recordFailure(idx, o.Row.Row.Title, fmt.Sprintf("storage write failed: %v", err), "")
			c.queue.MarkDone(idx)
		}
	case o.NotFound:
		if phase == PhaseFallback {
			// The catalog definitively has nothing for this row; any
			// earlier failure no longer matters.
			c.mu.Lock()
			delete(c.lastFailure, idx)
			c.mu.Unlock()
		}
		slog.Debug("No catalog match", "row", idx, "phase", phase.String(), "key", o.Row.Key.String())
		c.queue.MarkMissed(idx)
	default:
		c.mu.Lock()
		c.lastFailure[idx] = *o.Failure
		c.mu.Unlock()
		slog.Debug("Lookup failed for row",
			"row", idx,
			"phase", phase.String(),
			"category", o.Failure.Category.String(),
			"attempts", o.Attempts)
		c.queue.MarkMissed(idx)
	}

	c.mu.Lock()
	c.progress.RetryAttempts = c.retries.Stats().TotalAttempts
	c.mu.Unlock()
	c.emitProgress("")
}

// commitRow merges, deduplicates and persists one row's final record.
func (c *Coordinator) commitRow(idx int, o Outcome) error {
	book := c.merger.Merge(o.Row.Row, o.Metadata)

	dup, kind, err := c.isDuplicate(book)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.completed[idx] {
		return nil
	}

	if dup {
		switch kind {
		case "isbn":
			c.dups.ByISBN++
		case "catalog_id":
			c.dups.ByCatalogID++
		default:
			c.dups.ByTitleAuthor++
		}
		c.progress.Duplicates++
		slog.Info("Skipping duplicate", "row", idx, "title", book.Title, "matched_by", kind)
	} else {
		if err := c.store.InsertBooks([]map[string]any{bookToMap(book)}); err != nil {
			return err
		}
		c.progress.SuccessCount++
		c.imported = append(c.imported, book)
	}

	c.completed[idx] = true
	c.queue.MarkResolved(idx)
	c.queue.MarkDone(idx)
	c.progress.ProcessedRows++
	c.sinceCheckpoint++
	if c.sinceCheckpoint >= c.checkpointEvery {
		c.sinceCheckpoint = 0
		if err := c.checkpointLocked(); err != nil {
			slog.Error("Failed to checkpoint", "error", err)
		}
	}
	return nil
}

func (c *Coordinator) isDuplicate(book Book) (bool, string, error) {
	if found, err := c.store.ExistsByISBN(book.ISBN); err != nil {
		return false, "", err
	} else if found {
		return true, "isbn", nil
	}
	if found, err := c.store.ExistsByCatalogID(book.CatalogID); err != nil {
		return false, "", err
	} else if found {
		return true, "catalog_id", nil
	}
	author := ""
	if len(book.Authors) > 0 {
		author = book.Authors[0]
	}
	if found, err := c.store.ExistsByTitleAuthor(book.Title, author); err != nil {
		return false, "", err
	} else if found {
		return true, "title_author", nil
	}
	return false, "", nil
}

// finalizeUnresolved settles rows that left both phases without catalog
// metadata: rows whose last lookup genuinely failed become row
// failures, the rest are imported from their row data alone.
func (c *Coordinator) finalizeUnresolved(ctx context.Context) error {
	for _, row := range c.queue.Unresolved() {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.mu.Lock()
		failure, failed := c.lastFailure[row.Index]
		alreadyDone := c.completed[row.Index]
		c.mu.Unlock()
		if alreadyDone {
			continue
		}

		if failed {
			c.recordFailure(row.Index, row.Title, failureMessage(row.Title, failure), failureSuggestion(row, failure))
			c.queue.MarkDone(row.Index)
			c.emitProgress("")
			continue
		}

		if err := c.commitRow(row.Index, Outcome{Row: WorkItem{Row: row}}); err != nil {
			slog.Error("Failed to write row-only book", "row", row.Index, "error", err)
			c.recordFailure(row.Index, row.Title, fmt.Sprintf("storage write failed: %v", err), "")
			c.queue.MarkDone(row.Index)
		}
		c.emitProgress("")
	}
	return nil
}

// recordFailure finalizes a row as failed. The row joins the completed
// set so checkpoints persist it and a resumed run neither retries nor
// recounts it.
func (c *Coordinator) recordFailure(idx int, title, message, suggestion string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed[idx] {
		return
	}
	c.rowFailures = append(c.rowFailures, RowFailure{
		RowIndex:   idx,
		Title:      title,
		Message:    message,
		Suggestion: suggestion,
	})
	c.completed[idx] = true
	c.progress.FailureCount++
	c.progress.ProcessedRows++
	c.sinceCheckpoint++
	if c.sinceCheckpoint >= c.checkpointEvery {
		c.sinceCheckpoint = 0
		if err := c.checkpointLocked(); err != nil {
			slog.Error("Failed to checkpoint", "error", err)
		}
	}
}

func (c *Coordinator) finishCancelled(cause error) (*Result, error) {
	slog.Info("Import cancelled", "session", c.session.ID, "cause", cause)
	c.queue.Cancel()
	c.setPhase(PhaseCancelled)
	// The final checkpoint records exactly what completed; terminal
	// states are cleaned up lazily on the next load.
	if err := c.checkpoint(); err != nil {
		slog.Error("Failed to checkpoint on cancellation", "error", err)
	}
	result := c.buildResult(true)
	c.emit(Event{Kind: EventDone, Progress: c.snapshot(), Result: result})
	return result, nil
}

func (c *Coordinator) buildResult(cancelled bool) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !cancelled {
		c.progress.Phase = PhaseCompleted
	}
	c.progress.LastUpdated = time.Now()

	return &Result{
		SessionID:   c.session.ID,
		TotalRows:   c.progress.TotalRows,
		Successful:  c.progress.SuccessCount,
		Failed:      c.progress.FailureCount,
		Duplicates:  c.dups,
		RowFailures: c.rowFailures,
		Books:       c.imported,
		Retries:     c.retries.Stats(),
		Elapsed:     time.Since(c.started),
		Cancelled:   cancelled,
	}
}

func (c *Coordinator) checkpoint() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkpointLocked()
}

func (c *Coordinator) checkpointLocked() error {
	completed := make([]int, 0, len(c.completed))
	for idx := range c.completed {
		completed = append(completed, idx)
	}
	c.progress.LastUpdated = time.Now()
	return c.states.Checkpoint(PersistedState{
		Session:       c.session,
		Progress:      c.progress,
		CompletedRows: completed,
	})
}

func (c *Coordinator) currentPhase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress.Phase
}

func (c *Coordinator) setPhase(p Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.progress.Phase.Terminal() {
		c.progress.Phase = p
	}
}

func (c *Coordinator) snapshot() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.progress
	p.LastUpdated = time.Now()
	return p
}

func (c *Coordinator) emitProgress(message string) {
	c.emit(Event{Kind: EventProgress, Progress: c.snapshot(), Message: message})
}

// emitStalled surfaces circuit-open stalls on the event stream so a
// pause is never a silent hang.
func (c *Coordinator) emitStalled(message string) {
	c.emit(Event{Kind: EventStalled, Progress: c.snapshot(), Message: message})
}

// emit never blocks the pipeline: if the observer is not keeping up the
// event is dropped.
func (c *Coordinator) emit(e Event) {
	if e.Kind == EventDone {
		c.events <- e
		return
	}
	select {
	case c.events <- e:
	default:
	}
}

func bookToMap(book Book) map[string]any {
	m := cmdutil.StructToMap(book, cmdutil.StructToMapOptions{
		OmitFields: map[string]bool{
			"RowIndex":      true,
			"PrimarySource": true,
			"FieldSources":  true,
			"OriginalTitle": true,
		},
		JoinStringSlices: true,
	})
	m["title_source"] = string(book.PrimarySource)
	return m
}

func failureMessage(title string, failure resilience.Classified) string {
	name := title
	if name == "" {
		name = "row"
	}
	return fmt.Sprintf("lookup for %q failed (%s): %v", name, failure.Category.String(), failure.Err)
}

func failureSuggestion(row parser.RowRecord, failure resilience.Classified) string {
	switch {
	case failure.Category == resilience.CategoryPermanent && row.HasISBN():
		return "check the ISBN format in the source file"
	case failure.Category == resilience.CategoryRateLimited:
		return "re-run the import later; the catalog is rate limiting requests"
	default:
		return ""
	}
}
