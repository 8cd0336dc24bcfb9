package docmanager

import (
	"context"
	"path"
	"strings"
	"sync"

	"github.com/jupyter/jupyter-js-docmanager/internal/contents"
	"github.com/jupyter/jupyter-js-docmanager/internal/event"
	"github.com/jupyter/jupyter-js-docmanager/internal/event/events"
	"github.com/jupyter/jupyter-js-docmanager/internal/widget"
)

// DocumentClass is the class token tagged onto every title the manager
// opens, marking the widget as a managed document.
const DocumentClass = "jp-Document"

// registration binds a handler to the extensions it claims.
type registration struct {
	handler    *FileHandler
	extensions []string
	isDefault  bool
}

// Manager routes open requests to file handlers by extension and tracks
// the shell-wide current document across all of them.
type Manager struct {
	bus event.Bus
	log Logger

	mu       sync.Mutex
	registry []*registration
	fallback *registration
	current  *FileHandler
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the manager's logger.
func WithManagerLogger(log Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewManager creates an empty manager publishing on the given bus.
func NewManager(bus event.Bus, opts ...ManagerOption) *Manager {
	m := &Manager{
		bus: bus,
		log: nopLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a handler claiming the given extensions (with leading dot,
// e.g. ".txt"). Extensions match case-insensitively.
func (m *Manager) Register(h *FileHandler, extensions ...string) {
	exts := make([]string, len(extensions))
	for i, ext := range extensions {
		exts[i] = strings.ToLower(ext)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry = append(m.registry, &registration{handler: h, extensions: exts})
}

// RegisterDefault adds a handler that receives every path no other
// handler claims. Only one default is allowed.
func (m *Manager) RegisterDefault(h *FileHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fallback != nil {
		return ErrDefaultAlreadySet
	}
	reg := &registration{handler: h, isDefault: true}
	m.registry = append(m.registry, reg)
	m.fallback = reg
	return nil
}

// Open dispatches the model to a handler by file extension and returns the
// widget. One matching handler wins outright; none falls back to the
// default or fails with NoHandlerError; several fall to the first
// registered, which is logged.
func (m *Manager) Open(model contents.Model) (widget.Widget, error) {
	h, err := m.dispatch(model.Path)
	if err != nil {
		return nil, err
	}

	w := h.Open(model)
	w.Title().AddClass(DocumentClass)

	if m.bus != nil {
		ev := event.New(events.TopicDocumentOpenRequested, events.DocumentOpenRequested{
			WidgetID: w.ID(),
			Path:     model.Path,
			Handler:  h.Name(),
		}, "docmanager")
		if err := m.bus.Publish(context.Background(), ev); err != nil {
			m.log.Error("publish %s: %v", events.TopicDocumentOpenRequested, err)
		}
	}
	return w, nil
}

// dispatch picks the handler for a path.
func (m *Manager) dispatch(p string) (*FileHandler, error) {
	ext := strings.ToLower(path.Ext(p))

	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []*registration
	for _, reg := range m.registry {
		if reg.isDefault {
			continue
		}
		for _, e := range reg.extensions {
			if e == ext {
				matches = append(matches, reg)
				break
			}
		}
	}

	switch len(matches) {
	case 0:
		if m.fallback != nil {
			return m.fallback.handler, nil
		}
		return nil, &NoHandlerError{Path: p}
	case 1:
		return matches[0].handler, nil
	default:
		m.log.Warn("extension %s claimed by %d handlers, using %s", ext, len(matches), matches[0].handler.Name())
		return matches[0].handler, nil
	}
}

// Save persists the current document. No current document is ErrNoTarget.
func (m *Manager) Save(ctx context.Context) (contents.Model, error) {
	h := m.Current()
	if h == nil {
		return contents.Model{}, ErrNoTarget
	}
	return h.Save(ctx, nil)
}

// Revert restores the current document from its persisted content.
// No current document is ErrNoTarget.
func (m *Manager) Revert(ctx context.Context) (contents.Model, error) {
	h := m.Current()
	if h == nil {
		return contents.Model{}, ErrNoTarget
	}
	return h.Revert(ctx, nil)
}

// Close closes the current document. Returns false when there is none.
func (m *Manager) Close() bool {
	h := m.Current()
	if h == nil {
		return false
	}
	return h.Close(nil)
}

// CloseAll closes every open document across all handlers.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	regs := make([]*registration, len(m.registry))
	copy(regs, m.registry)
	m.mu.Unlock()

	for _, reg := range regs {
		reg.handler.CloseAll()
	}
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
}

// HandleFocus attributes a focus change to whichever handler owns a
// visible widget containing the node, making that handler current.
// Returns true if some handler claimed the node.
func (m *Manager) HandleFocus(n widget.Node) bool {
	m.mu.Lock()
	regs := make([]*registration, len(m.registry))
	copy(regs, m.registry)
	m.mu.Unlock()

	for _, reg := range regs {
		if reg.handler.HandleFocus(n) {
			m.mu.Lock()
			m.current = reg.handler
			m.mu.Unlock()
			return true
		}
	}
	return false
}

// Current returns the handler owning the current document, or nil. The
// handler may have lost its active widget since it became current.
func (m *Manager) Current() *FileHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.ActiveWidget() == nil {
		return nil
	}
	return m.current
}

// CurrentWidget returns the current document's widget, or nil.
func (m *Manager) CurrentWidget() widget.Widget {
	h := m.Current()
	if h == nil {
		return nil
	}
	return h.ActiveWidget()
}

// FindWidget returns the open widget for a path across all handlers,
// or nil.
func (m *Manager) FindWidget(p string) widget.Widget {
	m.mu.Lock()
	regs := make([]*registration, len(m.registry))
	copy(regs, m.registry)
	m.mu.Unlock()

	for _, reg := range regs {
		if w := reg.handler.FindWidget(p); w != nil {
			return w
		}
	}
	return nil
}

// OpenPaths returns every open document path across all handlers.
func (m *Manager) OpenPaths() []string {
	m.mu.Lock()
	regs := make([]*registration, len(m.registry))
	copy(regs, m.registry)
	m.mu.Unlock()

	var paths []string
	for _, reg := range regs {
		paths = append(paths, reg.handler.OpenPaths()...)
	}
	return paths
}
