// Package contents defines the storage-service contract the document
// manager consumes: an asynchronous key-path backend exposing fetch, save
// and rename, plus local-disk, in-memory and REST implementations.
package contents

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Format identifies the representation of a model's content.
type Format string

const (
	// FormatText carries content as UTF-8 text.
	FormatText Format = "text"

	// FormatBase64 carries content as base64-encoded bytes.
	FormatBase64 Format = "base64"

	// FormatJSON carries structured content (e.g., notebooks) as JSON text.
	FormatJSON Format = "json"
)

// Type identifies the kind of stored entry.
type Type string

const (
	// TypeFile is a regular file.
	TypeFile Type = "file"

	// TypeNotebook is a structured notebook document.
	TypeNotebook Type = "notebook"

	// TypeDirectory is a directory listing.
	TypeDirectory Type = "directory"
)

// Model is an immutable snapshot of a stored document. The handler holds it
// only as the latest-known binding for a widget; the service owns the
// canonical state.
type Model struct {
	// Path is the service-relative path of the entry.
	Path string

	// Name is the display name (usually the path's base name).
	Name string

	// Content is the entry's content in the representation given by Format.
	Content string

	// Type is the kind of entry.
	Type Type

	// Format is the content representation.
	Format Format

	// LastModified is the server-side modification time, when known.
	LastModified time.Time
}

// GetOptions selects the representation fetched by Service.Get.
type GetOptions struct {
	// Format requests a content representation. Empty lets the service pick.
	Format Format

	// Type requests an entry kind. Empty lets the service pick.
	Type Type
}

// Service is the storage backend contract: fetch, save, rename.
// All methods return the server's canonical model on success.
type Service interface {
	// Get fetches the model at path.
	Get(ctx context.Context, path string, opts GetOptions) (Model, error)

	// Save persists content and returns the canonical model.
	Save(ctx context.Context, path string, model Model) (Model, error)

	// Rename moves an entry and returns its model under the new path.
	Rename(ctx context.Context, oldPath, newPath string) (Model, error)
}

// Standard errors returned by contents services.
var (
	// ErrNotFound indicates the path does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIsDirectory indicates the path is a directory, not a file.
	ErrIsDirectory = errors.New("path is a directory")

	// ErrAlreadyExists indicates the target path already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrFileTooLarge indicates the entry exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrBinaryFile indicates text was requested for binary content.
	ErrBinaryFile = errors.New("binary file")

	// ErrBadFormat indicates an unsupported format was requested.
	ErrBadFormat = errors.New("unsupported format")
)

// PathError is an error associated with a stored path.
type PathError struct {
	Op   string // operation that failed (get, save, rename)
	Path string
	Err  error
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PathError) Unwrap() error {
	return e.Err
}
