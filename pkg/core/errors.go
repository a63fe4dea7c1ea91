package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrNotFound indicates that a requested memory was not found.
	ErrNotFound = errors.New("memory not found")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidMemoryType indicates an unknown memory type was supplied.
	ErrInvalidMemoryType = errors.New("invalid memory type")

	// ErrInvalidPriority indicates an unknown priority was supplied.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrEmptyContent indicates a memory was added with no content.
	ErrEmptyContent = errors.New("empty memory content")

	// ErrStorageOperation indicates that a persistence operation failed.
	// Persistence is advisory: write failures carrying this error are
	// logged and swallowed, never surfaced to callers.
	ErrStorageOperation = errors.New("storage operation failed")
)

// MemoryError wraps errors with operation context.
//
// It records which operation failed, making error messages more
// informative for debugging.
//
// Example:
//
//	err := &MemoryError{Op: "AddMemory", Err: ErrInvalidMemoryType}
//	// Error() returns: "agentmem: AddMemory: invalid memory type"
type MemoryError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "agentmem: <Op>: <Err>"
func (e *MemoryError) Error() string {
	return fmt.Sprintf("agentmem: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with MemoryError.
func (e *MemoryError) Unwrap() error {
	return e.Err
}

// NewMemoryError creates a new MemoryError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewMemoryError("AddMemory", err)
//	}
func NewMemoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{
		Op:  op,
		Err: err,
	}
}
