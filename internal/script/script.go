// Package script runs the optional Lua startup script. The script can add
// extension routes, tune options, and open documents before the shell
// starts.
package script

import (
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"
)

// Hooks is the application surface exposed to the startup script.
type Hooks interface {
	// Route binds a file extension to a named handler.
	Route(ext, handler string)

	// Open opens a document by path.
	Open(path string) error

	// Set sets a named option.
	Set(key, value string) error
}

// Error wraps a script failure with the script path.
type Error struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("script %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Host owns a Lua state with the docmanager module installed.
//
// gopher-lua states are not goroutine-safe; a Host must be used from one
// goroutine.
type Host struct {
	L     *lua.LState
	hooks Hooks
}

// NewHost creates a Lua host bound to the given hooks.
func NewHost(hooks Hooks) *Host {
	h := &Host{
		L:     lua.NewState(),
		hooks: hooks,
	}
	h.install()
	return h
}

// Close releases the Lua state.
func (h *Host) Close() {
	h.L.Close()
}

// Run executes the script file at path. A missing file is not an error;
// script failures are.
func (h *Host) Run(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &Error{Path: path, Err: err}
	}
	if err := h.L.DoFile(path); err != nil {
		return &Error{Path: path, Err: err}
	}
	return nil
}

// RunString executes a script from source.
func (h *Host) RunString(src string) error {
	if err := h.L.DoString(src); err != nil {
		return &Error{Path: "(inline)", Err: err}
	}
	return nil
}

// install registers the docmanager module table.
func (h *Host) install() {
	mod := h.L.NewTable()
	h.L.SetFuncs(mod, map[string]lua.LGFunction{
		"route": h.luaRoute,
		"open":  h.luaOpen,
		"set":   h.luaSet,
	})
	h.L.SetGlobal("docmanager", mod)
}

// luaRoute implements docmanager.route(ext, handler).
func (h *Host) luaRoute(L *lua.LState) int {
	ext := L.CheckString(1)
	handler := L.CheckString(2)
	h.hooks.Route(ext, handler)
	return 0
}

// luaOpen implements docmanager.open(path). Failures raise Lua errors.
func (h *Host) luaOpen(L *lua.LState) int {
	path := L.CheckString(1)
	if err := h.hooks.Open(path); err != nil {
		L.RaiseError("open %s: %v", path, err)
	}
	return 0
}

// luaSet implements docmanager.set(key, value). Failures raise Lua errors.
func (h *Host) luaSet(L *lua.LState) int {
	key := L.CheckString(1)
	value := L.CheckString(2)
	if err := h.hooks.Set(key, value); err != nil {
		L.RaiseError("set %s: %v", key, err)
	}
	return 0
}
