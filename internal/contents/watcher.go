package contents

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ChangeKind classifies an external filesystem change.
type ChangeKind int

const (
	// ChangeModified means the entry's content changed on disk.
	ChangeModified ChangeKind = iota

	// ChangeRemoved means the entry was deleted or renamed away.
	ChangeRemoved

	// ChangeCreated means a new entry appeared.
	ChangeCreated
)

// String returns a human-readable kind name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeModified:
		return "modified"
	case ChangeRemoved:
		return "removed"
	case ChangeCreated:
		return "created"
	default:
		return "unknown"
	}
}

// Change describes an external change under a watched root.
type Change struct {
	// Path is the service-relative path of the changed entry.
	Path string

	// Kind classifies the change.
	Kind ChangeKind
}

// Watcher reports external changes under a Local service's root, so the
// shell can offer reverts for documents modified outside the editor.
type Watcher struct {
	root string
	fs   *fsnotify.Watcher

	mu       sync.Mutex
	onChange []func(Change)
	done     chan struct{}
	closed   bool
}

// NewWatcher creates a watcher over the given Local service's root.
func NewWatcher(local *Local) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(local.Root()); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		root: local.Root(),
		fs:   fw,
		done: make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// WatchDir adds a subdirectory (service-relative) to the watch set.
func (w *Watcher) WatchDir(dir string) error {
	return w.fs.Add(filepath.Join(w.root, filepath.FromSlash(normalize(dir))))
}

// OnChange registers an observer for external changes.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Close stops watching. Idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.fs.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			change, relevant := w.classify(ev)
			if !relevant {
				continue
			}
			w.mu.Lock()
			observers := make([]func(Change), len(w.onChange))
			copy(observers, w.onChange)
			w.mu.Unlock()
			for _, fn := range observers {
				fn(change)
			}

		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			// Watch errors are not fatal to the session; keep going.
		}
	}
}

// classify maps an fsnotify event onto a service-relative Change.
func (w *Watcher) classify(ev fsnotify.Event) (Change, bool) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return Change{}, false
	}

	change := Change{Path: filepath.ToSlash(rel)}
	switch {
	case ev.Op.Has(fsnotify.Write):
		change.Kind = ChangeModified
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		change.Kind = ChangeRemoved
	case ev.Op.Has(fsnotify.Create):
		change.Kind = ChangeCreated
	default:
		return Change{}, false
	}
	return change, true
}
