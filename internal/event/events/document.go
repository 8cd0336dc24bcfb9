// Package events defines the document-session event topics and payloads
// published by the document manager.
package events

import (
	"github.com/jupyter/jupyter-js-docmanager/internal/event/topic"
)

// Document lifecycle topics.
const (
	// TopicDocumentOpenRequested is published by the manager after dispatch,
	// carrying the widget the shell should attach.
	TopicDocumentOpenRequested topic.Topic = "document.open.requested"

	// TopicDocumentReady is published once per open, when the widget's
	// initial population from the contents service completes.
	TopicDocumentReady topic.Topic = "document.ready"

	// TopicDocumentActivated is published when a handler transitions from
	// having no active widget to having one.
	TopicDocumentActivated topic.Topic = "document.activated"

	// TopicDocumentDirtyChanged is published when a widget's dirty state flips.
	TopicDocumentDirtyChanged topic.Topic = "document.dirty.changed"

	// TopicDocumentSaved is published after a successful save.
	TopicDocumentSaved topic.Topic = "document.saved"

	// TopicDocumentReverted is published after a successful revert.
	TopicDocumentReverted topic.Topic = "document.reverted"

	// TopicDocumentRenamed is published after a successful rename.
	TopicDocumentRenamed topic.Topic = "document.renamed"

	// TopicDocumentClosed is published after a widget is closed.
	TopicDocumentClosed topic.Topic = "document.closed"
)

// Contents topics.
const (
	// TopicContentsExternalChanged is published when a watched file changes
	// outside the editor.
	TopicContentsExternalChanged topic.Topic = "contents.external.changed"
)

// DocumentOpenRequested carries the newly opened widget's identity.
type DocumentOpenRequested struct {
	// WidgetID identifies the widget to attach.
	WidgetID string

	// Path is the document path that was opened.
	Path string

	// Handler is the name of the handler that received the open.
	Handler string
}

// DocumentReady carries the model a widget was populated with.
type DocumentReady struct {
	// WidgetID identifies the populated widget.
	WidgetID string

	// Path is the document path.
	Path string
}

// DocumentActivated carries the newly active widget's identity.
type DocumentActivated struct {
	// WidgetID identifies the active widget.
	WidgetID string

	// Handler is the name of the owning handler.
	Handler string
}

// DocumentDirtyChanged carries a dirty-state transition.
type DocumentDirtyChanged struct {
	// WidgetID identifies the widget.
	WidgetID string

	// Path is the document path.
	Path string

	// Dirty is the new dirty state.
	Dirty bool
}

// DocumentSaved carries the canonical model path after a save.
type DocumentSaved struct {
	// WidgetID identifies the saved widget.
	WidgetID string

	// Path is the persisted path.
	Path string
}

// DocumentReverted carries the path a widget was reverted from.
type DocumentReverted struct {
	// WidgetID identifies the reverted widget.
	WidgetID string

	// Path is the document path.
	Path string
}

// DocumentRenamed carries a rename transition.
type DocumentRenamed struct {
	// WidgetID identifies the renamed widget.
	WidgetID string

	// OldPath is the path before the rename.
	OldPath string

	// NewPath is the path after the rename.
	NewPath string
}

// DocumentClosed carries the path of a closed widget.
type DocumentClosed struct {
	// WidgetID identifies the closed widget.
	WidgetID string

	// Path is the document path.
	Path string
}

// ContentsExternalChanged carries an external filesystem change.
type ContentsExternalChanged struct {
	// Path is the service-relative path that changed.
	Path string

	// Kind describes the change ("modified", "removed", "created").
	Kind string
}
