package model

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ValidationError marks malformed input. Never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// QuotaExhaustedError signals that a platform has no budget left for this
// cycle. Terminal for that platform until ResetAt, never system-fatal.
type QuotaExhaustedError struct {
	Platform Platform
	ResetAt  time.Time
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("quota exhausted for %s until %s", e.Platform, e.ResetAt.Format(time.RFC3339))
}

// TransportError carries the HTTP status (or timeout flag) of a failed
// platform or notification call.
type TransportError struct {
	StatusCode int
	Message    string
	Timeout    bool
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("transport timeout: %s", e.Message)
	}
	return fmt.Sprintf("transport error (status %d): %s", e.StatusCode, e.Message)
}

// Retryable implements the retry classification policy: 429, 5xx and
// timeouts are retryable; any other 4xx is terminal.
func (e *TransportError) Retryable() bool {
	if e.Timeout {
		return true
	}
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode >= 500
}

// RetryExhaustedError is returned after the retry budget ran out. It carries
// the attempt count and wraps the last error.
type RetryExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *RetryExhaustedError) Unwrap() error { return e.LastErr }

// IsRetryable classifies an error for the retry policy. Validation and quota
// errors are always terminal; transport errors follow their own policy;
// network timeouts and connection failures are retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return false
	}
	var qe *QuotaExhaustedError
	if errors.As(err, &qe) {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return true
		}
		var oe *net.OpError
		if errors.As(err, &oe) {
			return true
		}
	}
	return false
}
