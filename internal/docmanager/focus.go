package docmanager

import (
	"github.com/jupyter/jupyter-js-docmanager/internal/widget"
)

// FocusSource is the shell-side origin of focus changes. The manager does
// not poll focus; the shell pushes nodes as they gain focus.
type FocusSource interface {
	// OnFocusChange registers a callback invoked with the newly focused
	// node. A nil node means focus left the document area.
	OnFocusChange(fn func(n widget.Node))
}

// BindFocus routes a focus source's changes into the manager.
func (m *Manager) BindFocus(src FocusSource) {
	src.OnFocusChange(func(n widget.Node) {
		m.HandleFocus(n)
	})
}
