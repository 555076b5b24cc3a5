// Package handlers is the catalog of command handlers compiled into the
// binary. Manifests refer to a handler by its catalog name ("echo.Echo"),
// and the loader binds it into the session when the module is loaded.
package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/vk/dotmod/internal/shell"
)

// Module is the interface that all built-in modules implement to add their
// handlers to the catalog.
type Module interface {
	Register(h *Handlers)
}

// Call carries one invocation of a handler.
type Call struct {
	// Command is the name the handler was invoked under.
	Command string
	Args    []string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	// Runner executes external tools for handlers that wrap them.
	Runner shell.Runner
	// Shell is the configured shell binary for Runner commands.
	Shell string
}

// HandlerFunc is the signature of every compiled-in command.
type HandlerFunc func(ctx context.Context, call *Call) error

// Handler is a registered command implementation with its description.
type Handler struct {
	Description string
	Fn          HandlerFunc
}

// Handlers holds all the registered handlers.
type Handlers struct {
	all map[string]*Handler
}

// New creates an empty catalog.
func New() *Handlers {
	return &Handlers{
		all: make(map[string]*Handler),
	}
}

// Register adds a handler under name. Registering the same name twice is a
// programming error and panics.
func (h *Handlers) Register(name string, handler *Handler) {
	if _, exists := h.all[name]; exists {
		panic(fmt.Sprintf("handler with name '%s' already registered", name))
	}
	if handler == nil || handler.Fn == nil {
		panic(fmt.Sprintf("handler '%s' has no function", name))
	}
	slog.Debug("Registering handler.", "name", name)
	h.all[name] = handler
}

// Lookup returns the handler registered under name.
func (h *Handlers) Lookup(name string) (*Handler, bool) {
	handler, ok := h.all[name]
	return handler, ok
}

// Names returns all registered handler names, sorted.
func (h *Handlers) Names() []string {
	names := make([]string, 0, len(h.all))
	for name := range h.all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterAll registers every module in order.
func (h *Handlers) RegisterAll(modules ...Module) {
	for _, m := range modules {
		m.Register(h)
	}
}
