package errors

import (
	stdErrors "errors"
	"testing"
	"time"
)

func TestRateLimitError(t *testing.T) {
	err := NewRateLimitError("slow down")

	if err.Error() != "slow down" {
		t.Fatalf("Error message = %q, want %q", err.Error(), "slow down")
	}

	if !IsRateLimitError(err) {
		t.Fatalf("IsRateLimitError returned false for RateLimitError")
	}

	wrapped := stdErrors.Join(err)
	if !IsRateLimitError(wrapped) {
		t.Fatalf("IsRateLimitError returned false for wrapped RateLimitError")
	}
}

func TestRateLimitErrorWithRetry(t *testing.T) {
	err := NewRateLimitErrorWithRetry("too many requests", 2*time.Minute)

	expected := "too many requests (retry after 2m0s)"
	if err.Error() != expected {
		t.Fatalf("Error message = %q, want %q", err.Error(), expected)
	}

	if !IsRateLimitError(err) {
		t.Fatalf("IsRateLimitError returned false for RateLimitError with retry hint")
	}

	if err.RetryAfter.Minutes() != 2.0 {
		t.Fatalf("RetryAfter = %v, want 2 minutes", err.RetryAfter)
	}
}

func TestRateLimitErrorWithRetry_ZeroDuration(t *testing.T) {
	err := NewRateLimitErrorWithRetry("rate limited", 0)

	if err.Error() != "rate limited" {
		t.Fatalf("Error message = %q, want %q", err.Error(), "rate limited")
	}
}

func TestStatusError(t *testing.T) {
	err := NewStatusError(503, "catalog unavailable")

	expected := "catalog unavailable (HTTP 503)"
	if err.Error() != expected {
		t.Fatalf("Error message = %q, want %q", err.Error(), expected)
	}

	wrapped := stdErrors.Join(err, stdErrors.New("additional context"))
	statusErr := AsStatusError(wrapped)
	if statusErr == nil {
		t.Fatalf("AsStatusError returned nil for wrapped StatusError")
	}
	if statusErr.Code != 503 {
		t.Fatalf("Code = %d, want 503", statusErr.Code)
	}
}

func TestStatusError_NoMessage(t *testing.T) {
	err := NewStatusError(418, "")

	if err.Error() != "unexpected status (HTTP 418)" {
		t.Fatalf("Error message = %q", err.Error())
	}
}

func TestAsStatusError_PlainError(t *testing.T) {
	if AsStatusError(stdErrors.New("nope")) != nil {
		t.Fatalf("AsStatusError returned non-nil for plain error")
	}
}

func TestStopProcessingError(t *testing.T) {
	err := NewStopProcessingError("user stopped")

	if err.Error() != "user stopped" {
		t.Fatalf("Error message = %q, want %q", err.Error(), "user stopped")
	}

	if !IsStopProcessingError(err) {
		t.Fatalf("IsStopProcessingError returned false for StopProcessingError")
	}

	wrapped := stdErrors.Join(err)
	if !IsStopProcessingError(wrapped) {
		t.Fatalf("IsStopProcessingError returned false for wrapped StopProcessingError")
	}
}
