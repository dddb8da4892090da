package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lepinkainen/stacks/internal/catalog"
	"github.com/lepinkainen/stacks/internal/ratelimit"
	"github.com/lepinkainen/stacks/internal/resilience"
)

// Outcome is the terminal result of one lookup: metadata, a definitive
// not-found, or a classified failure after retries were exhausted.
type Outcome struct {
	Row      WorkItem
	Metadata *catalog.Metadata
	NotFound bool
	Failure  *resilience.Classified
	Attempts int
	// Sequence is a monotonic counter assigned when the lookup
	// finishes, so phase ordering is mechanically checkable.
	Sequence int64
}

// Success reports whether the lookup produced metadata.
func (o Outcome) Success() bool {
	return o.Metadata != nil
}

// Engine executes a batch of lookups against the catalog with bounded,
// adaptive concurrency. Every call passes through the rate limiter and
// circuit breaker; failures are classified and retried through the
// retry queue until they succeed or exhaust their attempts.
type Engine struct {
	client  catalog.Client
	limiter *ratelimit.Limiter
	monitor *ratelimit.Monitor
	breaker *resilience.Breaker
	retries *resilience.RetryQueue
	timeout time.Duration

	seq atomic.Int64

	// onStall is invoked when the circuit is open and the engine is
	// waiting instead of issuing calls. Optional.
	onStall func(message string)
}

// EngineConfig carries the engine's collaborators.
type EngineConfig struct {
	Client  catalog.Client
	Limiter *ratelimit.Limiter
	Monitor *ratelimit.Monitor
	Breaker *resilience.Breaker
	Retries *resilience.RetryQueue
	// Timeout bounds each individual catalog call.
	Timeout time.Duration
	// OnStall is called when circuit-open conditions stop progress.
	OnStall func(message string)
}

// NewEngine creates a batch lookup engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Engine{
		client:  cfg.Client,
		limiter: cfg.Limiter,
		monitor: cfg.Monitor,
		breaker: cfg.Breaker,
		retries: cfg.Retries,
		timeout: cfg.Timeout,
		onStall: cfg.OnStall,
	}
}

// Sequence returns the number of lookups completed so far.
func (e *Engine) Sequence() int64 {
	return e.seq.Load()
}

// Run executes items to completion, invoking handle exactly once per
// item with its terminal outcome. handle calls are serialized. Run
// returns early only on context cancellation; items without an outcome
// by then are simply not reported.
func (e *Engine) Run(ctx context.Context, items []WorkItem, handle func(Outcome)) error {
	if len(items) == 0 {
		return nil
	}

	var handleMu sync.Mutex
	emit := func(o Outcome) {
		o.Sequence = e.seq.Add(1)
		handleMu.Lock()
		defer handleMu.Unlock()
		handle(o)
	}

	pending := make(map[string]WorkItem, len(items))
	for _, item := range items {
		pending[workKey(item)] = item
	}

	// First pass: every item once. The pool size is re-read from the
	// monitor between chunks so it can shrink or grow mid-batch.
	remaining := items
	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Feed the window into the rate limiter before the monitor
		// resets it for the concurrency step.
		if snap := e.monitor.Snapshot(); snap.Total() > 0 {
			e.limiter.AdaptRate(snap.SuccessRate(), snap.AvgLatency)
		}
		workers := e.monitor.RecommendedConcurrency()
		chunk := remaining
		if len(chunk) > workers*2 {
			chunk = chunk[:workers*2]
		}
		remaining = remaining[len(chunk):]
		e.monitor.UpdateQueueDepth(len(remaining) + e.retries.Pending())

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, item := range chunk {
			g.Go(func() error {
				e.attempt(gctx, item, 0, emit)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	// Retry passes: drain the queue, honoring each entry's eligibility
	// time, until everything has a terminal outcome.
	return e.drainRetries(ctx, pending, emit)
}

func (e *Engine) drainRetries(ctx context.Context, pending map[string]WorkItem, emit func(Outcome)) error {
	for e.retries.Pending() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		ready := e.retries.Ready()
		if len(ready) == 0 {
			next, ok := e.retries.NextEligibleAt()
			if !ok {
				return nil
			}
			if err := e.sleepUntil(ctx, next); err != nil {
				return err
			}
			continue
		}

		if snap := e.monitor.Snapshot(); snap.Total() > 0 {
			e.limiter.AdaptRate(snap.SuccessRate(), snap.AvgLatency)
		}
		workers := e.monitor.RecommendedConcurrency()
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, req := range ready {
			item, ok := pending[req.Key]
			if !ok {
				// Entry from an earlier phase; nothing to re-run here.
				e.retries.Remove(req.Key)
				continue
			}
			attempts := req.Attempts
			g.Go(func() error {
				e.attempt(gctx, item, attempts, emit)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// attempt performs one lookup for item and routes the result: success
// and definitive not-found emit an outcome, retryable failures go back
// to the retry queue, exhausted or permanent failures emit a terminal
// failure outcome.
// workKey identifies one item in the retry queue. The row index keeps
// rows that share a lookup key (the same ISBN twice in a spreadsheet)
// scheduled independently.
func workKey(item WorkItem) string {
	return fmt.Sprintf("%s#%d", item.Key.String(), item.Row.Index)
}

func (e *Engine) attempt(ctx context.Context, item WorkItem, attempts int, emit func(Outcome)) {
	key := workKey(item)

	if err := e.limiter.Wait(ctx); err != nil {
		return
	}

	done, ok := e.breaker.Allow()
	if !ok {
		e.handleFailure(item, attempts, resilience.CircuitOpen(), emit)
		if e.onStall != nil {
			e.onStall("circuit breaker open, pausing lookups")
		}
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	start := time.Now()
	meta, err := catalog.Lookup(callCtx, e.client, item.Key)
	latency := time.Since(start)
	cancel()

	if err != nil {
		classified := resilience.Classify(err)
		done(false)
		e.monitor.RecordFailure(latency, classified.Category == resilience.CategoryRateLimited)
		slog.Debug("Lookup failed",
			"key", key,
			"category", classified.Category.String(),
			"retryable", classified.Retryable,
			"attempt", attempts,
			"error", err)
		e.handleFailure(item, attempts, classified, emit)
		return
	}

	done(true)
	e.monitor.RecordSuccess(latency)
	e.retries.RecordSuccess(key)

	emit(Outcome{
		Row:      item,
		Metadata: meta,
		NotFound: meta == nil,
		Attempts: attempts + 1,
	})
}

func (e *Engine) handleFailure(item WorkItem, attempts int, classified resilience.Classified, emit func(Outcome)) {
	if e.retries.AddClassified(workKey(item), item.Row.Index, classified) {
		return
	}
	failure := classified
	emit(Outcome{
		Row:      item,
		Failure:  &failure,
		Attempts: attempts + 1,
	})
}

func (e *Engine) sleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return nil
	}
	slog.Debug("Waiting for next eligible retry", "in", d)
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
