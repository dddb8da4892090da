// Package resilience contains the failure-handling layer of the import
// pipeline: error classification, retry backoff, circuit breaking and the
// retry queue.
package resilience

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/lepinkainen/stacks/internal/errors"
)

// Category buckets a lookup failure for retry decisions.
type Category int

const (
	// CategoryNetworkTransient covers timeouts and connection loss.
	CategoryNetworkTransient Category = iota
	// CategoryRateLimited covers explicit backpressure from the catalog.
	CategoryRateLimited
	// CategoryServerError covers catalog-side failures (5xx).
	CategoryServerError
	// CategoryPermanent covers failures that retrying cannot fix.
	CategoryPermanent
)

func (c Category) String() string {
	switch c {
	case CategoryNetworkTransient:
		return "network-transient"
	case CategoryRateLimited:
		return "rate-limited"
	case CategoryServerError:
		return "server-error"
	case CategoryPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Classified is the result of mapping a raw lookup error onto the retry
// taxonomy.
type Classified struct {
	Category       Category
	Retryable      bool
	SuggestedDelay time.Duration
	Err            error
}

const (
	transientBaseDelay    = 1 * time.Second
	serverErrorBaseDelay  = 2 * time.Second
	defaultRateLimitDelay = 60 * time.Second
)

// ErrCircuitOpen marks a lookup that was rejected locally because the
// circuit breaker was open. It never reached the catalog.
var ErrCircuitOpen = stdErrors.New("circuit breaker open")

// Classify maps a raw failure to a Classified error. It is pure and
// deterministic. Unrecognized errors classify as retryable transient
// failures so that work is never silently dropped.
func Classify(err error) Classified {
	if err == nil {
		return Classified{Category: CategoryNetworkTransient, Retryable: true, SuggestedDelay: transientBaseDelay}
	}

	var rlErr *errors.RateLimitError
	if stdErrors.As(err, &rlErr) {
		delay := rlErr.RetryAfter
		if delay <= 0 {
			delay = defaultRateLimitDelay
		}
		return Classified{Category: CategoryRateLimited, Retryable: true, SuggestedDelay: delay, Err: err}
	}

	if statusErr := errors.AsStatusError(err); statusErr != nil {
		return classifyStatus(statusErr.Code, err)
	}

	if stdErrors.Is(err, context.DeadlineExceeded) {
		return Classified{Category: CategoryNetworkTransient, Retryable: true, SuggestedDelay: transientBaseDelay, Err: err}
	}

	// Malformed request URLs can never succeed.
	var urlErr *url.Error
	if stdErrors.As(err, &urlErr) && urlErr.Op == "parse" {
		return Classified{Category: CategoryPermanent, Retryable: false, Err: err}
	}

	// Responses we could not decode won't decode better next time.
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if stdErrors.As(err, &syntaxErr) || stdErrors.As(err, &typeErr) {
		return Classified{Category: CategoryPermanent, Retryable: false, Err: err}
	}

	var netErr net.Error
	if stdErrors.As(err, &netErr) {
		return Classified{Category: CategoryNetworkTransient, Retryable: true, SuggestedDelay: transientBaseDelay, Err: err}
	}

	// Fail open toward retrying rather than dropping work.
	return Classified{Category: CategoryNetworkTransient, Retryable: true, SuggestedDelay: transientBaseDelay, Err: err}
}

func classifyStatus(code int, err error) Classified {
	switch {
	case code == http.StatusTooManyRequests:
		return Classified{Category: CategoryRateLimited, Retryable: true, SuggestedDelay: defaultRateLimitDelay, Err: err}
	case code >= 500:
		return Classified{Category: CategoryServerError, Retryable: true, SuggestedDelay: serverErrorBaseDelay, Err: err}
	case code >= 400:
		return Classified{Category: CategoryPermanent, Retryable: false, Err: err}
	default:
		return Classified{Category: CategoryNetworkTransient, Retryable: true, SuggestedDelay: transientBaseDelay, Err: err}
	}
}

// CircuitOpen returns the Classified outcome for a lookup short-circuited
// by an open breaker. It is reported like a server failure and stays
// retryable so the row is not lost.
func CircuitOpen() Classified {
	return Classified{
		Category:       CategoryServerError,
		Retryable:      true,
		SuggestedDelay: serverErrorBaseDelay,
		Err:            ErrCircuitOpen,
	}
}
