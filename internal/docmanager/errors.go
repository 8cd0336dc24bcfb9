package docmanager

import (
	"errors"
	"fmt"
)

// Common errors returned by the document manager.
var (
	// ErrNoTarget indicates an operation had no widget to act on: no
	// explicit target was given and no widget is active.
	ErrNoTarget = errors.New("no target widget")

	// ErrDefaultAlreadySet indicates a second default handler registration.
	ErrDefaultAlreadySet = errors.New("default handler already set")

	// ErrNotOpen indicates the widget is not registered with the handler.
	ErrNotOpen = errors.New("widget not open")
)

// NoHandlerError indicates no registered handler matched a path and no
// default handler was set.
type NoHandlerError struct {
	// Path is the path that could not be dispatched.
	Path string
}

// Error implements the error interface.
func (e *NoHandlerError) Error() string {
	return fmt.Sprintf("no handler for path %q", e.Path)
}

// OpError wraps a contents-service failure with the document operation
// that triggered it.
type OpError struct {
	// Op is the operation that failed ("fetch", "save", "rename").
	Op string

	// Path is the document path the operation targeted.
	Path string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}
