// Package widget defines the contract between the document manager and the
// UI elements it owns. Widgets are opaque to the manager: a title, a
// visibility flag, a containment query for focus attribution, and disposal
// are the whole surface.
package widget

import (
	"sync"

	"github.com/google/uuid"
)

// Node is anything that can receive UI focus. Focus attribution walks the
// parent chain to find the widget containing a focused node.
type Node interface {
	Parent() Node
}

// identified is implemented by nodes with a widget identity.
type identified interface {
	ID() string
}

// Widget is a UI element owned by exactly one handler for its lifetime.
type Widget interface {
	Node

	// ID returns the widget's unique identity.
	ID() string

	// Title returns the widget's title object.
	Title() *Title

	// IsVisible returns true if the widget is currently shown.
	IsVisible() bool

	// SetVisible shows or hides the widget.
	SetVisible(visible bool)

	// Contains returns true if the node is this widget or a descendant.
	Contains(n Node) bool

	// Dispose releases the widget's resources. Idempotent.
	Dispose()

	// IsDisposed returns true after Dispose.
	IsDisposed() bool

	// OnCloseRequest installs the hook invoked by RequestClose. The owning
	// handler installs this so that widget teardown always routes through it.
	OnCloseRequest(fn func())

	// RequestClose asks the widget's owner to close it. Called by the shell's
	// close control; a widget is never torn down directly by the UI.
	RequestClose()
}

// Base is a ready-made Widget implementation for concrete widgets to embed.
type Base struct {
	mu       sync.Mutex
	id       string
	title    *Title
	parent   Node
	visible  bool
	disposed bool
	closeReq func()
}

// NewBase creates a visible widget base with the given title text.
func NewBase(titleText string) *Base {
	return &Base{
		id:      uuid.NewString(),
		title:   NewTitle(titleText),
		visible: true,
	}
}

// ID returns the widget's unique identity.
func (b *Base) ID() string {
	return b.id
}

// Title returns the widget's title object.
func (b *Base) Title() *Title {
	return b.title
}

// Parent returns the widget's parent node (nil for top-level widgets).
func (b *Base) Parent() Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parent
}

// SetParent attaches the widget under a parent node.
func (b *Base) SetParent(parent Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parent = parent
}

// IsVisible returns true if the widget is currently shown.
func (b *Base) IsVisible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visible && !b.disposed
}

// SetVisible shows or hides the widget.
func (b *Base) SetVisible(visible bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.visible = visible
}

// Contains returns true if n is this widget or a descendant of it.
// Identity is compared by widget ID so that embedding wrappers and their
// bases count as the same widget.
func (b *Base) Contains(n Node) bool {
	for n != nil {
		if id, ok := n.(identified); ok && id.ID() == b.id {
			return true
		}
		n = n.Parent()
	}
	return false
}

// Dispose releases the widget's resources. Safe to call more than once.
func (b *Base) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return
	}
	b.disposed = true
	b.visible = false
	b.closeReq = nil
}

// IsDisposed returns true after Dispose.
func (b *Base) IsDisposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}

// OnCloseRequest installs the close-request hook.
func (b *Base) OnCloseRequest(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeReq = fn
}

// RequestClose invokes the installed close-request hook, if any.
func (b *Base) RequestClose() {
	b.mu.Lock()
	fn := b.closeReq
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Element is a focusable child node inside a widget, used to attribute
// focus events to the containing widget.
type Element struct {
	parent Node
}

// NewElement creates a focusable node under the given parent.
func NewElement(parent Node) *Element {
	return &Element{parent: parent}
}

// Parent returns the element's parent node.
func (e *Element) Parent() Node {
	return e.parent
}
