// ABOUTME: Error taxonomy for orchestration failures
// ABOUTME: Input errors are synchronous; backend errors carry a failure kind

package conversation

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrEmptyMessage rejects empty or whitespace-only input before any state
// mutation.
var ErrEmptyMessage = errors.New("message must be a non-empty string")

// Backend failure kinds.
const (
	BackendTimeout     = "timeout"
	BackendUnavailable = "unavailable"
)

// BackendError wraps a backend transport failure. The user's turn remains
// recorded; no assistant turn is added. The core never retries.
type BackendError struct {
	Kind string
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// classifyBackend wraps a raw backend error with its failure kind.
func classifyBackend(err error) *BackendError {
	kind := BackendUnavailable

	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		kind = BackendTimeout
	}

	return &BackendError{Kind: kind, Err: err}
}
