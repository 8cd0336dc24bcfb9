package contents

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestLocal(t *testing.T) (*Local, string) {
	t.Helper()
	root := t.TempDir()
	svc, err := NewLocal(root)
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}
	return svc, root
}

func TestLocalGet(t *testing.T) {
	svc, root := newTestLocal(t)
	writeFile(t, root, "dir/a.txt", "hello")

	model, err := svc.Get(context.Background(), "dir/a.txt", GetOptions{Format: FormatText})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if model.Content != "hello" {
		t.Errorf("Content = %q, want %q", model.Content, "hello")
	}
	if model.Path != "dir/a.txt" {
		t.Errorf("Path = %q, want %q", model.Path, "dir/a.txt")
	}
	if model.Name != "a.txt" {
		t.Errorf("Name = %q, want %q", model.Name, "a.txt")
	}
	if model.Type != TypeFile || model.Format != FormatText {
		t.Errorf("Type/Format = %v/%v", model.Type, model.Format)
	}
	if model.LastModified.IsZero() {
		t.Error("LastModified should be set")
	}
}

func TestLocalGetErrors(t *testing.T) {
	svc, root := newTestLocal(t)

	if _, err := svc.Get(context.Background(), "missing.txt", GetOptions{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file error = %v, want ErrNotFound", err)
	}

	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(context.Background(), "sub", GetOptions{}); !errors.Is(err, ErrIsDirectory) {
		t.Errorf("directory error = %v, want ErrIsDirectory", err)
	}

	writeFile(t, root, "bin.dat", "ab\x00cd")
	if _, err := svc.Get(context.Background(), "bin.dat", GetOptions{Format: FormatText}); !errors.Is(err, ErrBinaryFile) {
		t.Errorf("binary error = %v, want ErrBinaryFile", err)
	}

	if _, err := svc.Get(context.Background(), "../escape.txt", GetOptions{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("escape error = %v, want ErrNotFound", err)
	}
}

func TestLocalGetBase64(t *testing.T) {
	svc, root := newTestLocal(t)
	writeFile(t, root, "bin.dat", "ab\x00cd")

	model, err := svc.Get(context.Background(), "bin.dat", GetOptions{Format: FormatBase64})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(model.Content)
	if err != nil {
		t.Fatalf("content is not valid base64: %v", err)
	}
	if string(decoded) != "ab\x00cd" {
		t.Errorf("decoded = %q, want %q", decoded, "ab\x00cd")
	}
}

func TestLocalGetTooLarge(t *testing.T) {
	root := t.TempDir()
	svc, err := NewLocal(root, WithMaxFileSize(4))
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, root, "big.txt", "12345")

	if _, err := svc.Get(context.Background(), "big.txt", GetOptions{}); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("error = %v, want ErrFileTooLarge", err)
	}
}

func TestLocalSave(t *testing.T) {
	svc, root := newTestLocal(t)
	writeFile(t, root, "a.txt", "old")

	saved, err := svc.Save(context.Background(), "a.txt", Model{Content: "new", Format: FormatText})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if saved.Path != "a.txt" || saved.Name != "a.txt" {
		t.Errorf("saved model = %+v", saved)
	}

	data, err := os.ReadFile(filepath.Join(root, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("disk content = %q, want %q", data, "new")
	}
}

func TestLocalRename(t *testing.T) {
	svc, root := newTestLocal(t)
	writeFile(t, root, "dir/old.txt", "body")

	model, err := svc.Rename(context.Background(), "dir/old.txt", "dir/new")
	if err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	if model.Path != "dir/new" {
		t.Errorf("Path = %q, want %q", model.Path, "dir/new")
	}
	if model.Name != "new" {
		t.Errorf("Name = %q, want %q", model.Name, "new")
	}

	if _, err := os.Stat(filepath.Join(root, "dir", "old.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Error("old path should be gone")
	}
	data, err := os.ReadFile(filepath.Join(root, "dir", "new"))
	if err != nil || string(data) != "body" {
		t.Errorf("new path content = %q, err = %v", data, err)
	}
}

func TestLocalRenameConflict(t *testing.T) {
	svc, root := newTestLocal(t)
	writeFile(t, root, "a.txt", "a")
	writeFile(t, root, "b.txt", "b")

	if _, err := svc.Rename(context.Background(), "a.txt", "b.txt"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("error = %v, want ErrAlreadyExists", err)
	}
}

func TestIsBinary(t *testing.T) {
	if IsBinary([]byte("plain text\nwith lines\n")) {
		t.Error("text misclassified as binary")
	}
	if !IsBinary([]byte("has\x00null")) {
		t.Error("null byte should mark binary")
	}
	if IsBinary(nil) {
		t.Error("empty content should not be binary")
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
