package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrQuit signals that the application should exit normally.
	ErrQuit = errors.New("quit requested")

	// ErrNoActiveDocument indicates no document is currently active.
	ErrNoActiveDocument = errors.New("no active document")

	// ErrUnknownHandler indicates a route referenced an unregistered
	// handler name.
	ErrUnknownHandler = errors.New("unknown handler")

	// ErrUnknownOption indicates a script set an option the application
	// does not know.
	ErrUnknownOption = errors.New("unknown option")
)

// InitError indicates a component failed to initialize during bootstrap.
type InitError struct {
	// Component names the component that failed.
	Component string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("initialize %s: %v", e.Component, e.Err)
}

// Unwrap returns the underlying error.
func (e *InitError) Unwrap() error {
	return e.Err
}

// OperationError represents an error during a document operation.
type OperationError struct {
	// Op is the operation name ("open", "save", "revert", "close").
	Op string

	// Target is the operation's target path, if known.
	Target string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *OperationError) Unwrap() error {
	return e.Err
}
