package resilience

import (
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerState mirrors the circuit breaker state machine.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerHalfOpen:
		return "half-open"
	case BreakerOpen:
		return "open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a circuit breaker for one external collaborator.
type BreakerConfig struct {
	// Name identifies the guarded collaborator (e.g. "openlibrary").
	Name string
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold int
	// RecoveryTimeout is how long the circuit stays open before probing.
	RecoveryTimeout time.Duration
	// HalfOpenSuccesses is the number of consecutive probe successes
	// required to close the circuit again.
	HalfOpenSuccesses int
}

// Breaker guards calls to one external collaborator. It wraps a two-step
// gobreaker so that the caller performs the guarded call itself and reports
// the outcome afterwards: Allow admits or rejects the call, the returned
// done callback records success or failure.
//
// Each collaborator gets its own Breaker instance so unrelated services do
// not trip each other.
type Breaker struct {
	name string
	cb   *gobreaker.TwoStepCircuitBreaker[any]
}

// NewBreaker creates a circuit breaker with the given configuration.
func NewBreaker(cfg BreakerConfig) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: uint32(cfg.HalfOpenSuccesses),
		Timeout:     cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.FailureThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Debug("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &Breaker{
		name: cfg.Name,
		cb:   gobreaker.NewTwoStepCircuitBreaker[any](settings),
	}
}

// Name returns the name of the guarded collaborator.
func (b *Breaker) Name() string {
	return b.name
}

// Allow reports whether a call may be attempted right now. When it returns
// ok, the caller must invoke done exactly once with the call's outcome.
// Reading the state first promotes Open to HalfOpen once the recovery
// timeout has elapsed.
func (b *Breaker) Allow() (done func(success bool), ok bool) {
	done, err := b.cb.Allow()
	if err != nil {
		return nil, false
	}
	return done, true
}

// CanExecute reports whether the breaker would admit a call without
// reserving one. Useful for stats; callers that intend to proceed should
// use Allow.
func (b *Breaker) CanExecute() bool {
	return b.State() != BreakerOpen
}

// State returns the current breaker state, recomputing the Open→HalfOpen
// transition first.
func (b *Breaker) State() BreakerState {
	switch b.cb.State() {
	case gobreaker.StateClosed:
		return BreakerClosed
	case gobreaker.StateHalfOpen:
		return BreakerHalfOpen
	default:
		return BreakerOpen
	}
}
