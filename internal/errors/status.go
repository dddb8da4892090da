package errors

import (
	stdErrors "errors"
	"fmt"
)

// StatusError represents a non-2xx HTTP response from a catalog API.
// The status code is preserved so callers can decide whether the failure
// is worth retrying.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Code)
	}
	return fmt.Sprintf("unexpected status (HTTP %d)", e.Code)
}

// NewStatusError creates a StatusError for the given HTTP status code.
func NewStatusError(code int, message string) *StatusError {
	return &StatusError{Code: code, Message: message}
}

// AsStatusError returns the StatusError in err's chain, or nil.
func AsStatusError(err error) *StatusError {
	var statusErr *StatusError
	if stdErrors.As(err, &statusErr) {
		return statusErr
	}
	return nil
}
