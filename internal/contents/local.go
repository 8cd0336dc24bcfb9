package contents

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultMaxFileSize bounds what Local will load into memory.
const DefaultMaxFileSize = 10 * 1024 * 1024 // 10MB

// Local is a disk-backed Service rooted at a directory. Service paths are
// slash-separated and relative to the root.
type Local struct {
	root        string
	maxFileSize int64
}

// LocalOption configures a Local service.
type LocalOption func(*Local)

// WithMaxFileSize sets the maximum file size Local will read.
func WithMaxFileSize(size int64) LocalOption {
	return func(l *Local) {
		l.maxFileSize = size
	}
}

// NewLocal creates a disk-backed service rooted at root.
func NewLocal(root string, opts ...LocalOption) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &PathError{Op: "open", Path: root, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &PathError{Op: "open", Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &PathError{Op: "open", Path: root, Err: ErrIsDirectory}
	}

	l := &Local{root: abs, maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Root returns the absolute root directory.
func (l *Local) Root() string {
	return l.root
}

// resolve maps a service path onto the filesystem, rejecting escapes.
func (l *Local) resolve(p string) (string, error) {
	clean := path.Clean("/" + p)
	if clean == "/" {
		clean = ""
	}
	full := filepath.Join(l.root, filepath.FromSlash(clean))
	if full != l.root && !strings.HasPrefix(full, l.root+string(filepath.Separator)) {
		return "", ErrNotFound
	}
	return full, nil
}

// Get fetches the file at path in the requested representation.
func (l *Local) Get(ctx context.Context, p string, opts GetOptions) (Model, error) {
	if err := ctx.Err(); err != nil {
		return Model{}, &PathError{Op: "get", Path: p, Err: err}
	}

	full, err := l.resolve(p)
	if err != nil {
		return Model{}, &PathError{Op: "get", Path: p, Err: err}
	}

	info, err := os.Stat(full)
	if err != nil {
		return Model{}, &PathError{Op: "get", Path: p, Err: mapFSError(err)}
	}
	if info.IsDir() {
		return Model{}, &PathError{Op: "get", Path: p, Err: ErrIsDirectory}
	}
	if l.maxFileSize > 0 && info.Size() > l.maxFileSize {
		return Model{}, &PathError{Op: "get", Path: p, Err: ErrFileTooLarge}
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return Model{}, &PathError{Op: "get", Path: p, Err: mapFSError(err)}
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
		LastModified: info.ModTime(),
	}

	switch format {
	case FormatText, FormatJSON:
		if IsBinary(data) {
			return Model{}, &PathError{Op: "get", Path: p, Err: ErrBinaryFile}
		}
		model.Content = string(data)
	case FormatBase64:
		model.Content = base64.StdEncoding.EncodeToString(data)
	default:
		return Model{}, &PathError{Op: "get", Path: p, Err: ErrBadFormat}
	}

	if opts.Type == TypeNotebook {
		model.Type = TypeNotebook
	}

	return model, nil
}

// Save persists the model's content at path and returns the canonical model.
func (l *Local) Save(ctx context.Context, p string, model Model) (Model, error) {
	if err := ctx.Err(); err != nil {
		return Model{}, &PathError{Op: "save", Path: p, Err: err}
	}

	full, err := l.resolve(p)
	if err != nil {
		return Model{}, &PathError{Op: "save", Path: p, Err: err}
	}

	var data []byte
	switch model.Format {
	case FormatBase64:
		data, err = base64.StdEncoding.DecodeString(model.Content)
		if err != nil {
			return Model{}, &PathError{Op: "save", Path: p, Err: err}
		}
	case FormatText, FormatJSON, "":
		data = []byte(model.Content)
	default:
		return Model{}, &PathError{Op: "save", Path: p, Err: ErrBadFormat}
	}

	if err := os.WriteFile(full, data, 0o644); err != nil {
		return Model{}, &PathError{Op: "save", Path: p, Err: mapFSError(err)}
	}

	saved := model
	saved.Path = normalize(p)
	saved.Name = path.Base(p)
	if saved.Type == "" {
		saved.Type = TypeFile
	}
	if info, err := os.Stat(full); err == nil {
		saved.LastModified = info.ModTime()
	}

	return saved, nil
}

// Rename moves an entry and returns its model under the new path.
// The rename fails if the target already exists.
func (l *Local) Rename(ctx context.Context, oldPath, newPath string) (Model, error) {
	if err := ctx.Err(); err != nil {
		return Model{}, &PathError{Op: "rename", Path: oldPath, Err: err}
	}

	oldFull, err := l.resolve(oldPath)
	if err != nil {
		return Model{}, &PathError{Op: "rename", Path: oldPath, Err: err}
	}
	newFull, err := l.resolve(newPath)
	if err != nil {
		return Model{}, &PathError{Op: "rename", Path: newPath, Err: err}
	}

	if _, err := os.Stat(newFull); err == nil {
		return Model{}, &PathError{Op: "rename", Path: newPath, Err: ErrAlreadyExists}
	}
	if err := os.Rename(oldFull, newFull); err != nil {
		return Model{}, &PathError{Op: "rename", Path: oldPath, Err: mapFSError(err)}
	}

	// The rename response carries no content, matching the wire contract.
	model := Model{
		Path: normalize(newPath),
		Name: path.Base(newPath),
		Type: TypeFile,
	}
	if info, err := os.Stat(newFull); err == nil {
		model.LastModified = info.ModTime()
		if info.IsDir() {
			model.Type = TypeDirectory
		}
	}
	return model, nil
}

// IsBinary reports whether content looks like binary data.
// Checks at most the first 8KB: null bytes or a high share of control
// characters mark content binary.
func IsBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}

	checkLen := len(content)
	if checkLen > 8192 {
		checkLen = 8192
	}
	sample := content[:checkLen]

	if bytes.Contains(sample, []byte{0}) {
		return true
	}

	nonText := 0
	for _, b := range sample {
		if b < 32 && b != '\t' && b != '\n' && b != '\r' {
			nonText++
		}
	}
	return float64(nonText)/float64(checkLen) > 0.1
}

// mapFSError converts os errors to the package's sentinel errors.
func mapFSError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrExist):
		return ErrAlreadyExists
	default:
		return err
	}
}
