// Package session holds the live dispatch table of a running dotmod
// session: every command a loaded module has bound, who owns it, and how to
// invoke it.
//
// A Session is not safe for concurrent use. It is mutated by the loader and
// read by the REPL, both on the session's control thread.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/vk/dotmod/internal/ctxlog"
)

// maxDepth bounds shortcut-to-command expansion so `alias a='b'` with
// `alias b='a'` fails instead of recursing forever.
const maxDepth = 16

var (
	// ErrUnknownCommand is returned when dispatching a name nothing is bound to.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrNotBound is returned when unbinding a name nothing is bound to.
	ErrNotBound = errors.New("command not bound")
	// ErrTooDeep is returned when shortcut expansion nests too deeply.
	ErrTooDeep = errors.New("command expansion too deep")
)

// Kind distinguishes full functions from shortcuts.
type Kind string

const (
	KindFunction Kind = "function"
	KindShortcut Kind = "shortcut"
)

// Stdio is the set of streams a command runs with.
type Stdio struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// InvokeFunc runs a bound command.
type InvokeFunc func(ctx context.Context, args []string, stdio Stdio) error

// Binding is one entry of the dispatch table.
type Binding struct {
	Command     string
	Module      string
	Kind        Kind
	Description string
	Invoke      InvokeFunc
}

// OwnershipError is returned when a module tries to unbind a command that
// another module has taken over.
type OwnershipError struct {
	Command string
	Owner   string
}

// Error implements the error interface for OwnershipError.
func (e *OwnershipError) Error() string {
	return fmt.Sprintf("command %q is now owned by module %q", e.Command, e.Owner)
}

// Session is the dispatch table.
type Session struct {
	bindings map[string]*Binding
}

// New creates an empty session.
func New() *Session {
	return &Session{
		bindings: make(map[string]*Binding),
	}
}

// Bind installs b, replacing any existing binding of the same command. It
// returns the module that previously owned the command, or "".
func (s *Session) Bind(b *Binding) string {
	var previous string
	if old, exists := s.bindings[b.Command]; exists {
		previous = old.Module
	}
	s.bindings[b.Command] = b
	return previous
}

// Unbind removes command if owner still owns it.
func (s *Session) Unbind(command, owner string) error {
	b, exists := s.bindings[command]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotBound, command)
	}
	if b.Module != owner {
		return &OwnershipError{Command: command, Owner: b.Module}
	}
	delete(s.bindings, command)
	return nil
}

// Lookup returns the binding for command.
func (s *Session) Lookup(command string) (*Binding, bool) {
	b, ok := s.bindings[command]
	return b, ok
}

// Commands returns every bound command name, sorted.
func (s *Session) Commands() []string {
	names := make([]string, 0, len(s.bindings))
	for name := range s.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OwnedBy returns the commands currently owned by module, sorted.
func (s *Session) OwnedBy(module string) []string {
	var names []string
	for name, b := range s.bindings {
		if b.Module == module {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

type depthKey struct{}

// Dispatch invokes the command bound to name.
func (s *Session) Dispatch(ctx context.Context, name string, args []string, stdio Stdio) error {
	depth, _ := ctx.Value(depthKey{}).(int)
	if depth >= maxDepth {
		return fmt.Errorf("%w: %s", ErrTooDeep, name)
	}

	b, ok := s.bindings[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Dispatching command.", "command", name, "module", b.Module, "kind", b.Kind, "args", args)

	ctx = context.WithValue(ctx, depthKey{}, depth+1)
	return b.Invoke(ctx, args, stdio)
}
