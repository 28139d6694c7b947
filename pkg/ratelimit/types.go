package ratelimit

import (
	"time"
)

// Record is one identity's counter within its current window.
type Record struct {
	Identity    string    `json:"identity"`
	WindowStart time.Time `json:"window_start"`
	Count       int64     `json:"count"`
}

// Result is the outcome of a rate limit check.
type Result struct {
	// Allowed reports whether the request may proceed.
	Allowed bool `json:"allowed"`

	// Remaining is the quota left in the current window after this check.
	Remaining int64 `json:"remaining"`

	// Limit is the configured cap per window.
	Limit int64 `json:"limit"`

	// ResetAfter is how long until the current window elapses.
	// Always >= 0.
	ResetAfter time.Duration `json:"reset_after"`
}

// RetryAfterSeconds returns ResetAfter rounded up to whole seconds,
// suitable for a Retry-After header.
func (r *Result) RetryAfterSeconds() int {
	if r.ResetAfter <= 0 {
		return 0
	}
	secs := int(r.ResetAfter / time.Second)
	if r.ResetAfter%time.Second != 0 {
		secs++
	}
	return secs
}
