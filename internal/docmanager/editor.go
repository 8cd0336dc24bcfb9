// Package docmanager implements the lifecycle engine for open document
// sessions: contents model to widget binding, dirty tracking, focus
// tracking, and open-dispatch by file type.
//
// The package is split into two layers. FileHandler is the generic engine
// for one kind of document, parameterized by an Editor that supplies the
// kind-specific behavior. Manager routes paths to handlers and tracks the
// shell-wide current document.
package docmanager

import (
	"github.com/jupyter/jupyter-js-docmanager/internal/contents"
	"github.com/jupyter/jupyter-js-docmanager/internal/widget"
)

// Editor supplies the kind-specific behavior a FileHandler needs to manage
// one class of documents. Implementations decide how content is fetched,
// how it populates a widget, and how widget state is captured for saving.
type Editor interface {
	// New creates the widget for a freshly opened model. Called once per
	// open; the handler owns the returned widget afterward.
	New(model contents.Model) widget.Widget

	// FetchOptions returns the options used to fetch the model's content
	// from the contents service.
	FetchOptions(model contents.Model) contents.GetOptions

	// Apply populates the widget from a fetched model. onEdit, when
	// non-nil, must be invoked on every subsequent user edit; applying
	// the model itself must not trigger it.
	Apply(w widget.Widget, model contents.Model, onEdit func()) error

	// Snapshot captures the widget's current state into a model suitable
	// for saving. base is the currently bound model.
	Snapshot(w widget.Widget, base contents.Model) (contents.Model, error)
}

// CloseGuard is consulted before a dirty widget is closed. Returning false
// vetoes the close. A nil guard closes unconditionally, discarding unsaved
// changes.
type CloseGuard func(w widget.Widget, model contents.Model) bool

// Logger is the logging surface the document manager writes to.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// nopLogger discards all log output.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
