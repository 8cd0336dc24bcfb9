package widget

import "sync"

// DirtyClass is the class token appended to a title while its widget has
// unsaved changes.
const DirtyClass = "jp-mod-dirty"

// Title holds the shell-facing description of a widget: display text, a
// closable flag, and a class list used to mark state (dirty, document kind).
// Text changes are observable; the owning handler uses them to drive renames.
type Title struct {
	mu       sync.Mutex
	text     string
	closable bool
	classes  []string
	onChange []func(old, new string)
}

// NewTitle creates a title with the given display text.
func NewTitle(text string) *Title {
	return &Title{text: text}
}

// Text returns the display text.
func (t *Title) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text
}

// SetText sets the display text and notifies change observers.
// Setting the same text is a no-op and does not notify.
func (t *Title) SetText(text string) {
	t.mu.Lock()
	old := t.text
	if old == text {
		t.mu.Unlock()
		return
	}
	t.text = text
	observers := make([]func(old, new string), len(t.onChange))
	copy(observers, t.onChange)
	t.mu.Unlock()

	for _, fn := range observers {
		fn(old, text)
	}
}

// OnChange registers an observer called after the title text changes.
func (t *Title) OnChange(fn func(old, new string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = append(t.onChange, fn)
}

// Closable returns true if the shell may show a close control.
func (t *Title) Closable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closable
}

// SetClosable sets the closable flag.
func (t *Title) SetClosable(closable bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closable = closable
}

// HasClass returns true if the class list contains the given token.
func (t *Title) HasClass(class string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.indexOf(class) >= 0
}

// AddClass appends a class token if not already present.
func (t *Title) AddClass(class string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.indexOf(class) < 0 {
		t.classes = append(t.classes, class)
	}
}

// RemoveClass removes a class token if present.
func (t *Title) RemoveClass(class string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i := t.indexOf(class); i >= 0 {
		t.classes = append(t.classes[:i], t.classes[i+1:]...)
	}
}

// Classes returns a copy of the class list.
func (t *Title) Classes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.classes))
	copy(out, t.classes)
	return out
}

// indexOf returns the index of class, or -1. Caller holds the lock.
func (t *Title) indexOf(class string) int {
	for i, c := range t.classes {
		if c == class {
			return i
		}
	}
	return -1
}
