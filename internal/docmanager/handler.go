package docmanager

import (
	"context"
	"path"
	"strings"
	"sync"

	"github.com/jupyter/jupyter-js-docmanager/internal/contents"
	"github.com/jupyter/jupyter-js-docmanager/internal/event"
	"github.com/jupyter/jupyter-js-docmanager/internal/event/events"
	"github.com/jupyter/jupyter-js-docmanager/internal/event/topic"
	"github.com/jupyter/jupyter-js-docmanager/internal/widget"
)

// entry is the per-widget session state. All lifecycle bookkeeping for a
// widget lives here; there are no side tables.
type entry struct {
	widget widget.Widget
	model  contents.Model
	path   string

	// dirty is true while the widget has unsaved changes.
	dirty bool

	// seq is the entry's generation counter. Revert, rename, and close bump
	// it; an async completion holding an older value is stale and must be
	// discarded.
	seq uint64

	// edits counts user edits. Save clears dirty only if the count is
	// unchanged since the snapshot was taken.
	edits uint64

	// populated is set once the initial fetch has been applied.
	populated bool
}

// FileHandler manages the open sessions for one kind of document. The
// kind-specific behavior comes from the Editor; the handler owns the
// lifecycle: registry, dirty tracking, persistence, focus, teardown.
type FileHandler struct {
	name   string
	editor Editor
	svc    contents.Service
	bus    event.Bus
	log    Logger
	guard  CloseGuard

	mu       sync.Mutex
	byPath   map[string]*entry
	byWidget map[string]*entry
	order    []string
	active   *entry
}

// HandlerOption configures a FileHandler.
type HandlerOption func(*FileHandler)

// WithLogger sets the handler's logger.
func WithLogger(log Logger) HandlerOption {
	return func(h *FileHandler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithCloseGuard installs a guard consulted before closing a dirty widget.
func WithCloseGuard(guard CloseGuard) HandlerOption {
	return func(h *FileHandler) {
		h.guard = guard
	}
}

// NewFileHandler creates a handler for one document kind. name identifies
// the handler in events and logs.
func NewFileHandler(name string, editor Editor, svc contents.Service, bus event.Bus, opts ...HandlerOption) *FileHandler {
	h := &FileHandler{
		name:     name,
		editor:   editor,
		svc:      svc,
		bus:      bus,
		log:      nopLogger{},
		byPath:   make(map[string]*entry),
		byWidget: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name returns the handler's identifying name.
func (h *FileHandler) Name() string {
	return h.name
}

// Open creates a widget session for the model, or returns the existing
// widget if the path is already open. The widget is returned immediately;
// its content is fetched and applied in the background, and a
// document.ready event marks the population complete.
func (h *FileHandler) Open(model contents.Model) widget.Widget {
	p := normalizePath(model.Path)
	model.Path = p

	h.mu.Lock()
	if e, ok := h.byPath[p]; ok {
		h.mu.Unlock()
		return e.widget
	}

	w := h.editor.New(model)
	title := w.Title()
	if title.Text() == "" {
		title.SetText(path.Base(p))
	}
	title.SetClosable(true)

	e := &entry{widget: w, model: model, path: p}
	h.byPath[p] = e
	h.byWidget[w.ID()] = e
	h.order = append(h.order, w.ID())
	seq := e.seq
	h.mu.Unlock()

	title.OnChange(func(old, text string) {
		h.titleChanged(w, text)
	})
	w.OnCloseRequest(func() {
		h.Close(w)
	})

	go h.populate(w, model, seq)
	return w
}

// populate fetches the model's content and applies it to the widget.
// Runs once per open, off the caller's goroutine.
func (h *FileHandler) populate(w widget.Widget, model contents.Model, seq uint64) {
	fetched, err := h.svc.Get(context.Background(), model.Path, h.editor.FetchOptions(model))
	if err != nil {
		h.log.Error("populate %s: %v", model.Path, err)
		return
	}

	h.mu.Lock()
	e, ok := h.byWidget[w.ID()]
	if !ok || e.seq != seq || e.populated {
		h.mu.Unlock()
		return
	}
	e.model = fetched
	e.populated = true
	h.mu.Unlock()

	if err := h.editor.Apply(w, fetched, func() { h.markDirty(w) }); err != nil {
		h.log.Error("apply %s: %v", fetched.Path, err)
		return
	}
	publish(h, events.TopicDocumentReady, events.DocumentReady{WidgetID: w.ID(), Path: fetched.Path})
}

// markDirty records a user edit and flips the dirty flag on the first one.
func (h *FileHandler) markDirty(w widget.Widget) {
	h.mu.Lock()
	e, ok := h.byWidget[w.ID()]
	if !ok {
		h.mu.Unlock()
		return
	}
	e.edits++
	if e.dirty {
		h.mu.Unlock()
		return
	}
	e.dirty = true
	p := e.path
	h.mu.Unlock()

	w.Title().AddClass(widget.DirtyClass)
	publish(h, events.TopicDocumentDirtyChanged, events.DocumentDirtyChanged{WidgetID: w.ID(), Path: p, Dirty: true})
}

// Save persists the target widget's state. A nil target saves the active
// widget; with no active widget Save returns ErrNoTarget. The dirty flag
// clears only if no edit arrived while the save was in flight.
func (h *FileHandler) Save(ctx context.Context, w widget.Widget) (contents.Model, error) {
	e, err := h.target(w)
	if err != nil {
		return contents.Model{}, err
	}

	h.mu.Lock()
	wdg := e.widget
	base := e.model
	seq := e.seq
	edits := e.edits
	h.mu.Unlock()

	snap, err := h.editor.Snapshot(wdg, base)
	if err != nil {
		return contents.Model{}, &OpError{Op: "save", Path: base.Path, Err: err}
	}
	saved, err := h.svc.Save(ctx, base.Path, snap)
	if err != nil {
		return contents.Model{}, &OpError{Op: "save", Path: base.Path, Err: err}
	}

	h.mu.Lock()
	cur, ok := h.byWidget[wdg.ID()]
	if !ok || cur.seq != seq {
		// Superseded by revert, rename, or close while saving.
		h.mu.Unlock()
		return saved, nil
	}
	cur.model.Content = snap.Content
	cur.model.Format = snap.Format
	if !saved.LastModified.IsZero() {
		cur.model.LastModified = saved.LastModified
	}
	cleared := cur.dirty && cur.edits == edits
	if cleared {
		cur.dirty = false
	}
	p := cur.path
	h.mu.Unlock()

	if cleared {
		wdg.Title().RemoveClass(widget.DirtyClass)
		publish(h, events.TopicDocumentDirtyChanged, events.DocumentDirtyChanged{WidgetID: wdg.ID(), Path: p, Dirty: false})
	}
	publish(h, events.TopicDocumentSaved, events.DocumentSaved{WidgetID: wdg.ID(), Path: p})
	return saved, nil
}

// Revert discards the target widget's state and re-applies the persisted
// content. A nil target reverts the active widget; with no active widget
// Revert returns ErrNoTarget.
func (h *FileHandler) Revert(ctx context.Context, w widget.Widget) (contents.Model, error) {
	e, err := h.target(w)
	if err != nil {
		return contents.Model{}, err
	}

	h.mu.Lock()
	wdg := e.widget
	base := e.model
	h.mu.Unlock()

	fetched, err := h.svc.Get(ctx, base.Path, h.editor.FetchOptions(base))
	if err != nil {
		return contents.Model{}, &OpError{Op: "fetch", Path: base.Path, Err: err}
	}

	h.mu.Lock()
	cur, ok := h.byWidget[wdg.ID()]
	if !ok {
		h.mu.Unlock()
		return contents.Model{}, ErrNotOpen
	}
	cur.seq++
	cur.edits++
	cur.model = fetched
	wasDirty := cur.dirty
	cur.dirty = false
	var onEdit func()
	if !cur.populated {
		cur.populated = true
		onEdit = func() { h.markDirty(wdg) }
	}
	p := cur.path
	h.mu.Unlock()

	if err := h.editor.Apply(wdg, fetched, onEdit); err != nil {
		return contents.Model{}, &OpError{Op: "fetch", Path: p, Err: err}
	}
	if wasDirty {
		wdg.Title().RemoveClass(widget.DirtyClass)
		publish(h, events.TopicDocumentDirtyChanged, events.DocumentDirtyChanged{WidgetID: wdg.ID(), Path: p, Dirty: false})
	}
	publish(h, events.TopicDocumentReverted, events.DocumentReverted{WidgetID: wdg.ID(), Path: p})
	return fetched, nil
}

// titleChanged reacts to a title text edit by renaming the document to
// dir(old path) + new title. The new binding takes effect only after the
// contents service confirms the rename.
func (h *FileHandler) titleChanged(w widget.Widget, text string) {
	h.mu.Lock()
	e, ok := h.byWidget[w.ID()]
	if !ok || text == "" {
		h.mu.Unlock()
		return
	}
	oldPath := e.path
	h.mu.Unlock()

	newPath := normalizePath(path.Join(path.Dir(oldPath), text))
	if newPath == oldPath {
		return
	}

	renamed, err := h.svc.Rename(context.Background(), oldPath, newPath)
	if err != nil {
		h.log.Error("rename %s -> %s: %v", oldPath, newPath, err)
		return
	}
	if renamed.Path != "" {
		newPath = normalizePath(renamed.Path)
	}

	h.mu.Lock()
	cur, ok := h.byWidget[w.ID()]
	if !ok || cur.path != oldPath {
		h.mu.Unlock()
		return
	}
	delete(h.byPath, oldPath)
	cur.path = newPath
	cur.model.Path = newPath
	cur.model.Name = path.Base(newPath)
	cur.seq++
	h.byPath[newPath] = cur
	h.mu.Unlock()

	publish(h, events.TopicDocumentRenamed, events.DocumentRenamed{WidgetID: w.ID(), OldPath: oldPath, NewPath: newPath})
}

// Close tears down a widget session: unregister, dispose, clear the active
// pointer if it pointed here. A nil target closes the active widget.
// Returns false when there is nothing to close or a guard vetoed it.
func (h *FileHandler) Close(w widget.Widget) bool {
	h.mu.Lock()
	var e *entry
	if w == nil {
		e = h.active
	} else {
		e = h.byWidget[w.ID()]
	}
	if e == nil {
		h.mu.Unlock()
		return false
	}
	guard := h.guard
	dirty := e.dirty
	model := e.model
	wdg := e.widget
	h.mu.Unlock()

	if dirty && guard != nil && !guard(wdg, model) {
		return false
	}

	h.mu.Lock()
	cur, ok := h.byWidget[wdg.ID()]
	if !ok {
		h.mu.Unlock()
		return false
	}
	cur.seq++
	delete(h.byPath, cur.path)
	delete(h.byWidget, wdg.ID())
	h.removeOrderLocked(wdg.ID())
	if h.active == cur {
		h.active = nil
	}
	p := cur.path
	h.mu.Unlock()

	wdg.Dispose()
	publish(h, events.TopicDocumentClosed, events.DocumentClosed{WidgetID: wdg.ID(), Path: p})
	return true
}

// CloseAll closes every open widget in open order. Guard vetoes leave the
// vetoed widgets open.
func (h *FileHandler) CloseAll() {
	h.mu.Lock()
	ws := make([]widget.Widget, 0, len(h.order))
	for _, id := range h.order {
		if e, ok := h.byWidget[id]; ok {
			ws = append(ws, e.widget)
		}
	}
	h.mu.Unlock()

	for _, w := range ws {
		h.Close(w)
	}
}

// HandleFocus attributes a focus change to the widget containing the node,
// if any, and makes it the handler's active widget. A document.activated
// event fires only when the handler previously had no active widget.
// Returns true if a widget of this handler contains the node.
func (h *FileHandler) HandleFocus(n widget.Node) bool {
	if n == nil {
		return false
	}

	h.mu.Lock()
	var hit *entry
	for _, id := range h.order {
		if e, ok := h.byWidget[id]; ok && e.widget.IsVisible() && e.widget.Contains(n) {
			hit = e
			break
		}
	}
	if hit == nil {
		h.mu.Unlock()
		return false
	}
	if h.active == hit {
		h.mu.Unlock()
		return true
	}
	hadActive := h.active != nil
	h.active = hit
	wdg := hit.widget
	h.mu.Unlock()

	if !hadActive {
		publish(h, events.TopicDocumentActivated, events.DocumentActivated{WidgetID: wdg.ID(), Handler: h.name})
	}
	return true
}

// ActiveWidget returns the handler's active widget, or nil.
func (h *FileHandler) ActiveWidget() widget.Widget {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == nil {
		return nil
	}
	return h.active.widget
}

// FindWidget returns the open widget for a path, or nil.
func (h *FileHandler) FindWidget(p string) widget.Widget {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.byPath[normalizePath(p)]; ok {
		return e.widget
	}
	return nil
}

// Path returns the document path bound to a widget.
func (h *FileHandler) Path(w widget.Widget) (string, bool) {
	if w == nil {
		return "", false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.byWidget[w.ID()]
	if !ok {
		return "", false
	}
	return e.path, true
}

// IsDirty reports whether a widget has unsaved changes.
func (h *FileHandler) IsDirty(w widget.Widget) bool {
	if w == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.byWidget[w.ID()]
	return ok && e.dirty
}

// Owns reports whether the widget is registered with this handler.
func (h *FileHandler) Owns(w widget.Widget) bool {
	if w == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.byWidget[w.ID()]
	return ok
}

// OpenPaths returns the open document paths in open order.
func (h *FileHandler) OpenPaths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	paths := make([]string, 0, len(h.order))
	for _, id := range h.order {
		if e, ok := h.byWidget[id]; ok {
			paths = append(paths, e.path)
		}
	}
	return paths
}

// target resolves the entry an operation acts on: the explicit widget if
// given, else the active widget.
func (h *FileHandler) target(w widget.Widget) (*entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if w == nil {
		if h.active == nil {
			return nil, ErrNoTarget
		}
		return h.active, nil
	}
	e, ok := h.byWidget[w.ID()]
	if !ok {
		return nil, ErrNotOpen
	}
	return e, nil
}

// removeOrderLocked drops a widget ID from the open-order list.
// Caller holds mu.
func (h *FileHandler) removeOrderLocked(id string) {
	for i, v := range h.order {
		if v == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			return
		}
	}
}

// publish sends a typed event on the handler's bus, logging failures.
func publish[T any](h *FileHandler, t topic.Topic, payload T) {
	if h.bus == nil {
		return
	}
	ev := event.New(t, payload, "docmanager/"+h.name)
	if err := h.bus.Publish(context.Background(), ev); err != nil {
		h.log.Error("publish %s: %v", t, err)
	}
}

// normalizePath cleans a service path to its canonical slash-relative form.
func normalizePath(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}
