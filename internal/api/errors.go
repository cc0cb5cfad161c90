package api

import (
	"errors"
	"fmt"
)

// Sentinel conditions of the consumed contract.
var (
	// ErrNotReady marks the benign "no data yet" condition, e.g. reading
	// the extracted document before the pipeline has produced it. Callers
	// are expected to swallow it, not surface it.
	ErrNotReady = errors.New("artifact not ready yet")

	// ErrNotFound maps 404 responses for unknown job ids.
	ErrNotFound = errors.New("not found")
)

// APIError is a non-2xx response from the backend. Detail carries the
// backend's human-readable message when the payload had one, otherwise a
// status-derived fallback.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return e.Detail
}

// Is lets APIError(404) satisfy errors.Is(err, ErrNotFound).
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}

// StreamError is a dropped push stream. It is surfaced exactly once and
// the stream is never reopened automatically.
type StreamError struct {
	JobID string
	Cause error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("status stream for job %s lost: %v", e.JobID, e.Cause)
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}
