package llm

import (
	"errors"
	"fmt"
)

// CompletionError is returned by engine operations.
// Message carries the backend's own description, which callers inspect for
// context-length violations.
type CompletionError struct {
	Op      string // Operation that failed ("reload", "complete")
	Model   string // Active or requested model id
	Message string // Backend error message
	Err     error  // Wrapped underlying error
}

// Error implements the error interface.
func (e *CompletionError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("llm %s (%s): %s", e.Op, e.Model, e.Message)
	}
	return fmt.Sprintf("llm %s: %s", e.Op, e.Message)
}

// Unwrap allows errors.Is and errors.As on the underlying error.
func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Sentinel errors for common failure conditions.
var (
	// ErrModelLoadFailed indicates Reload could not make the model active.
	ErrModelLoadFailed = errors.New("failed to load model")

	// ErrModelNotLoaded indicates Complete was called before a successful Reload.
	ErrModelNotLoaded = errors.New("no model loaded")

	// ErrCircuitOpen indicates the breaker rejected the call without contacting the backend.
	ErrCircuitOpen = errors.New("completion backend unavailable: circuit breaker open")
)

func newLoadError(model string, err error) *CompletionError {
	return &CompletionError{
		Op:      "reload",
		Model:   model,
		Message: backendMessage(err),
		Err:     fmt.Errorf("%w: %w", ErrModelLoadFailed, err),
	}
}

func newCompleteError(model string, err error) *CompletionError {
	return &CompletionError{
		Op:      "complete",
		Model:   model,
		Message: backendMessage(err),
		Err:     err,
	}
}
