package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// StatsError represents base stats pipeline error
type StatsError struct {
	Code    string
	Message string
	Cause   error
}

func (e *StatsError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *StatsError) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeValidation          = "VALIDATION"
	ErrCodeBudgetExceeded      = "BUDGET_EXCEEDED"
	ErrCodeCancelled           = "CANCELLED"
	ErrCodeConfiguration       = "CONFIGURATION"
)

// ErrBudgetExceeded is returned when a wall-clock budget elapses before the work completes
var ErrBudgetExceeded = &StatsError{Code: ErrCodeBudgetExceeded, Message: "budget exceeded"}

// NewUpstreamError creates upstream unavailability error
func NewUpstreamError(provider string, cause error) *StatsError {
	return &StatsError{
		Code:    ErrCodeUpstreamUnavailable,
		Message: fmt.Sprintf("upstream %s unavailable", provider),
		Cause:   cause,
	}
}

// NewRateLimitedError creates rate limiting error
func NewRateLimitedError(provider string, cause error) *StatsError {
	return &StatsError{
		Code:    ErrCodeRateLimited,
		Message: fmt.Sprintf("upstream %s rate limited", provider),
		Cause:   cause,
	}
}

// NewValidationError creates validation error
func NewValidationError(message string, cause error) *StatsError {
	return &StatsError{
		Code:    ErrCodeValidation,
		Message: message,
		Cause:   cause,
	}
}

// NewCancelledError wraps a context cancellation
func NewCancelledError(cause error) *StatsError {
	return &StatsError{
		Code:    ErrCodeCancelled,
		Message: "operation cancelled",
		Cause:   cause,
	}
}

// NewConfigurationError creates configuration error
func NewConfigurationError(message string, cause error) *StatsError {
	return &StatsError{
		Code:    ErrCodeConfiguration,
		Message: message,
		Cause:   cause,
	}
}

// HasCode reports whether err carries a StatsError with the given code
func HasCode(err error, code string) bool {
	var se *StatsError
	if stderrors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsCancelled reports whether err is a cancellation, either wrapped or raw from a context
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, context.Canceled) || HasCode(err, ErrCodeCancelled)
}

// IsRateLimited reports whether err is an upstream 429
func IsRateLimited(err error) bool {
	return HasCode(err, ErrCodeRateLimited)
}

// IsBudgetExceeded reports whether err is, or a context was cancelled with, ErrBudgetExceeded
func IsBudgetExceeded(err error) bool {
	return HasCode(err, ErrCodeBudgetExceeded)
}

// IsValidation reports whether err is a client input error
func IsValidation(err error) bool {
	return HasCode(err, ErrCodeValidation)
}
