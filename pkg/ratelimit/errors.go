package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// Common errors.
var (
	// ErrRateLimitExceeded is returned when a rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidIdentity is returned when an identity is empty or invalid.
	ErrInvalidIdentity = errors.New("invalid identity")
)

// RateLimitError is the typed, user-facing quota error. It carries the
// check result so callers can report remaining quota and reset time.
type RateLimitError struct {
	// Message is a human-readable error message.
	Message string

	// Result contains the detailed rate limit check result.
	Result *Result
}

// Error returns the error message.
func (e *RateLimitError) Error() string {
	return e.Message
}

// Unwrap returns the underlying sentinel.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimitExceeded
}

// RetryAfterSeconds returns the seconds until the window resets, or 0
// when the result is unknown.
func (e *RateLimitError) RetryAfterSeconds() int {
	if e.Result == nil {
		return 0
	}
	return e.Result.RetryAfterSeconds()
}

// NewRateLimitError creates a RateLimitError from a check result.
func NewRateLimitError(result *Result) *RateLimitError {
	message := "rate limit exceeded"
	if result != nil {
		message = fmt.Sprintf("rate limit exceeded, retry in %s", result.ResetAfter.Round(time.Second))
	}
	return &RateLimitError{
		Message: message,
		Result:  result,
	}
}

// IsRateLimitError checks if an error is a rate limit error.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}
	return errors.Is(err, ErrRateLimitExceeded)
}

// GetResult extracts the Result from a rate limit error.
// Returns nil if the error is not a RateLimitError.
func GetResult(err error) *Result {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle.Result
	}
	return nil
}
