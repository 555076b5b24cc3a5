package loader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/dotmod/internal/handlers"
	"github.com/vk/dotmod/internal/manifest"
	"github.com/vk/dotmod/internal/session"
	"github.com/vk/dotmod/internal/shell"
)

// buildBindings turns a parsed manifest into dispatch-table entries. It
// fails if an HCL function names a handler the binary does not have.
func (l *Loader) buildBindings(module string, m *manifest.Manifest) ([]*session.Binding, error) {
	bindings := make([]*session.Binding, 0, len(m.Functions)+len(m.Shortcuts))

	for _, fn := range m.Functions {
		b := &session.Binding{
			Command:     fn.Name,
			Module:      module,
			Kind:        session.KindFunction,
			Description: fn.Description,
		}

		switch {
		case m.Format == manifest.FormatShell:
			b.Invoke = l.shellFunction(m.Path, fn.Name)
		case fn.Handler != "":
			h, ok := l.handlers.Lookup(fn.Handler)
			if !ok {
				return nil, fmt.Errorf("function %q: unknown handler %q", fn.Name, fn.Handler)
			}
			if b.Description == "" {
				b.Description = h.Description
			}
			b.Invoke = l.goHandler(fn.Name, h, fn.Args)
		default:
			b.Invoke = l.script(filepath.Dir(m.Path), fn.Name, fn.Script, fn.Args)
		}

		bindings = append(bindings, b)
	}

	for _, sc := range m.Shortcuts {
		bindings = append(bindings, &session.Binding{
			Command:     sc.Name,
			Module:      module,
			Kind:        session.KindShortcut,
			Description: sc.Description,
			Invoke:      l.shortcut(sc.Name, sc.Command),
		})
	}

	return bindings, nil
}

func withStdio(cmd *shell.Command, stdio session.Stdio) *shell.Command {
	cmd.Stdin = stdio.Stdin
	cmd.Stdout = stdio.Stdout
	cmd.Stderr = stdio.Stderr
	return cmd
}

func (l *Loader) shellFunction(path, fn string) session.InvokeFunc {
	return func(ctx context.Context, args []string, stdio session.Stdio) error {
		return l.runner.Run(ctx, withStdio(shell.Function(l.cfg.Shell, path, fn, args), stdio))
	}
}

func (l *Loader) script(dir, name, body string, fixed []string) session.InvokeFunc {
	return func(ctx context.Context, args []string, stdio session.Stdio) error {
		cmd := withStdio(shell.Script(l.cfg.Shell, name, body, append(append([]string(nil), fixed...), args...)), stdio)
		cmd.Dir = dir
		return l.runner.Run(ctx, cmd)
	}
}

func (l *Loader) goHandler(name string, h *handlers.Handler, fixed []string) session.InvokeFunc {
	return func(ctx context.Context, args []string, stdio session.Stdio) error {
		return h.Fn(ctx, &handlers.Call{
			Command: name,
			Args:    append(append([]string(nil), fixed...), args...),
			Stdin:   stdio.Stdin,
			Stdout:  stdio.Stdout,
			Stderr:  stdio.Stderr,
			Runner:  l.runner,
			Shell:   l.cfg.Shell,
		})
	}
}

// shortcut expands to another bound command when the first word of its
// command line names one; otherwise the line runs through the shell.
func (l *Loader) shortcut(name, commandLine string) session.InvokeFunc {
	return func(ctx context.Context, args []string, stdio session.Stdio) error {
		words, err := session.SplitArgs(commandLine)
		if err == nil && len(words) > 0 && words[0] != name {
			if _, bound := l.session.Lookup(words[0]); bound {
				return l.session.Dispatch(ctx, words[0], append(append([]string(nil), words[1:]...), args...), stdio)
			}
		}
		return l.runner.Run(ctx, withStdio(shell.Expansion(l.cfg.Shell, name, commandLine, args), stdio))
	}
}
