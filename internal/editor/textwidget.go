// Package editor provides the plain-text document editor: a text widget,
// the handler hooks binding it to the document manager, and mode detection
// by file extension.
package editor

import (
	"strings"
	"sync"

	"github.com/jupyter/jupyter-js-docmanager/internal/widget"
)

// TextWidget is a widget holding an editable text buffer. It distinguishes
// loading content (programmatic, from the contents service) from editing
// (user input): only edits notify change listeners.
type TextWidget struct {
	*widget.Base

	mu        sync.Mutex
	text      string
	mode      Mode
	listeners []func()
}

// NewTextWidget creates an empty text widget with the given title text.
func NewTextWidget(titleText string) *TextWidget {
	return &TextWidget{Base: widget.NewBase(titleText)}
}

// Text returns the buffer content.
func (w *TextWidget) Text() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.text
}

// Load replaces the buffer content without notifying change listeners.
func (w *TextWidget) Load(text string) {
	w.mu.Lock()
	w.text = text
	w.mu.Unlock()
}

// SetText replaces the buffer content as a user edit, notifying listeners.
// Setting identical content is still an edit.
func (w *TextWidget) SetText(text string) {
	w.mu.Lock()
	w.text = text
	listeners := make([]func(), len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Insert appends text to the buffer as a user edit.
func (w *TextWidget) Insert(text string) {
	w.mu.Lock()
	w.text += text
	listeners := make([]func(), len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// DeleteLast removes the final rune from the buffer as a user edit.
// Empty buffers are left alone and listeners are not notified.
func (w *TextWidget) DeleteLast() {
	w.mu.Lock()
	if w.text == "" {
		w.mu.Unlock()
		return
	}
	runes := []rune(w.text)
	w.text = string(runes[:len(runes)-1])
	listeners := make([]func(), len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// OnChange registers a listener invoked after every user edit.
func (w *TextWidget) OnChange(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Mode returns the widget's editing mode.
func (w *TextWidget) Mode() Mode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// SetMode sets the widget's editing mode.
func (w *TextWidget) SetMode(mode Mode) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mode = mode
}

// Lines splits the buffer into display lines.
func (w *TextWidget) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.Split(w.text, "\n")
}
