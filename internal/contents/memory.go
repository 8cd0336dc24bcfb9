package contents

import (
	"context"
	"encoding/base64"
	"path"
	"strings"
	"sync"
	"time"
)

// Memory is a map-backed Service for tests and scratch sessions.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	data    []byte
	modTime time.Time
}

// NewMemory creates an empty in-memory service.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*memoryEntry)}
}

// Put seeds an entry, bypassing the Service interface.
func (m *Memory) Put(p string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[normalize(p)] = &memoryEntry{data: data, modTime: time.Now()}
}

// Exists returns true if an entry is present at path.
func (m *Memory) Exists(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[normalize(p)]
	return ok
}

// Get fetches the entry at path.
func (m *Memory) Get(ctx context.Context, p string, opts GetOptions) (Model, error) {
	if err := ctx.Err(); err != nil {
		return Model{}, &PathError{Op: "get", Path: p, Err: err}
	}

	m.mu.RLock()
	entry, ok := m.entries[normalize(p)]
	m.mu.RUnlock()
	if !ok {
		return Model{}, &PathError{Op: "get", Path: p, Err: ErrNotFound}
	}

	format := opts.Format
	if format == "" {
		format = FormatText
	}

	model := Model{
		Path:         normalize(p),
		Name:         path.Base(p),
		Type:         TypeFile,
		Format:       format,
		LastModified: entry.modTime,
	}

	switch format {
	case FormatText, FormatJSON:
		model.Content = string(entry.data)
	case FormatBase64:
		model.Content = base64.StdEncoding.EncodeToString(entry.data)
	default:
		return Model{}, &PathError{Op: "get", Path: p, Err: ErrBadFormat}
	}

	return model, nil
}

// Save persists the model's content at path.
func (m *Memory) Save(ctx context.Context, p string, model Model) (Model, error) {
	if err := ctx.Err(); err != nil {
		return Model{}, &PathError{Op: "save", Path: p, Err: err}
	}

	var data []byte
	switch model.Format {
	case FormatBase64:
		decoded, err := base64.StdEncoding.DecodeString(model.Content)
		if err != nil {
			return Model{}, &PathError{Op: "save", Path: p, Err: err}
		}
		data = decoded
	case FormatText, FormatJSON, "":
		data = []byte(model.Content)
	default:
		return Model{}, &PathError{Op: "save", Path: p, Err: ErrBadFormat}
	}

	now := time.Now()
	m.mu.Lock()
	m.entries[normalize(p)] = &memoryEntry{data: data, modTime: now}
	m.mu.Unlock()

	saved := model
	saved.Path = normalize(p)
	saved.Name = path.Base(p)
	if saved.Type == "" {
		saved.Type = TypeFile
	}
	saved.LastModified = now
	return saved, nil
}

// Rename moves an entry and returns its model under the new path.
func (m *Memory) Rename(ctx context.Context, oldPath, newPath string) (Model, error) {
	if err := ctx.Err(); err != nil {
		return Model{}, &PathError{Op: "rename", Path: oldPath, Err: err}
	}

	oldKey, newKey := normalize(oldPath), normalize(newPath)

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[oldKey]
	if !ok {
		return Model{}, &PathError{Op: "rename", Path: oldPath, Err: ErrNotFound}
	}
	if _, exists := m.entries[newKey]; exists {
		return Model{}, &PathError{Op: "rename", Path: newPath, Err: ErrAlreadyExists}
	}

	delete(m.entries, oldKey)
	entry.modTime = time.Now()
	m.entries[newKey] = entry

	return Model{
		Path:         newKey,
		Name:         path.Base(newKey),
		Type:         TypeFile,
		LastModified: entry.modTime,
	}, nil
}

// normalize cleans a service path to its canonical slash-relative form.
func normalize(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}
