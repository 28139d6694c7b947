package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrNotebookNotFound reports a call that named a notebook the
	// registry does not hold, or omitted one with no active default.
	ErrNotebookNotFound = errors.New("notebook not found")

	// ErrBackendUnavailable marks internal call failures. It never
	// escapes the client's public operations; fallback content does.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// NotebookNotFoundError carries the identifier that failed to resolve.
type NotebookNotFoundError struct {
	NotebookID string
}

func (e *NotebookNotFoundError) Error() string {
	if e.NotebookID == "" {
		return "no notebook specified and no active notebook configured"
	}
	return fmt.Sprintf("notebook not found: %s", e.NotebookID)
}

func (e *NotebookNotFoundError) Unwrap() error {
	return ErrNotebookNotFound
}

// IsNotebookNotFound reports whether err is a notebook resolution
// failure.
func IsNotebookNotFound(err error) bool {
	return errors.Is(err, ErrNotebookNotFound)
}
