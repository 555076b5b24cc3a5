package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vk/dotmod/internal/app"
	"github.com/vk/dotmod/internal/session"
)

// ErrUsage marks a malformed session command.
var ErrUsage = errors.New("usage")

// metaCommands are the built-in session commands, used for help and completion.
var metaCommands = []struct{ name, args, help string }{
	{":load", "NAME...", "load modules"},
	{":unload", "NAME...", "unload modules"},
	{":loaded", "[FILTER]", "list loaded modules"},
	{":available", "[FILTER]", "list modules in the source directory"},
	{":defs", "FILE|NAME", "list what a backing file declares"},
	{":commands", "", "list bound commands"},
	{":help", "", "show this help"},
	{":quit", "", "leave the session"},
}

// Interpreter executes session command lines against an App.
type Interpreter struct {
	app   *app.App
	stdin io.Reader
	out   io.Writer
}

// NewInterpreter creates an Interpreter. stdin is handed to dispatched
// commands; out receives help text.
func NewInterpreter(a *app.App, stdin io.Reader, out io.Writer) *Interpreter {
	return &Interpreter{app: a, stdin: stdin, out: out}
}

// Execute runs one line. quit reports a :quit command.
func (in *Interpreter) Execute(ctx context.Context, line string) (quit bool, err error) {
	words, err := session.SplitArgs(line)
	if err != nil {
		return false, err
	}
	if len(words) == 0 {
		return false, nil
	}

	command, args := words[0], words[1:]
	if !strings.HasPrefix(command, ":") {
		return false, in.app.Dispatch(ctx, in.stdin, command, args)
	}

	switch command {
	case ":load", ":l":
		if len(args) == 0 {
			return false, fmt.Errorf("%w: :load NAME...", ErrUsage)
		}
		return false, in.app.Load(ctx, args...)
	case ":unload", ":u":
		if len(args) == 0 {
			return false, fmt.Errorf("%w: :unload NAME...", ErrUsage)
		}
		return false, in.app.Unload(ctx, args...)
	case ":loaded":
		return false, in.app.PrintLoaded(ctx, optional(args))
	case ":available":
		return false, in.app.PrintAvailable(ctx, optional(args))
	case ":defs":
		if len(args) != 1 {
			return false, fmt.Errorf("%w: :defs FILE", ErrUsage)
		}
		return false, in.app.PrintDefinitions(ctx, args[0])
	case ":commands":
		in.app.PrintCommands()
		return false, nil
	case ":help", ":h", ":?":
		in.printHelp()
		return false, nil
	case ":quit", ":q", ":exit":
		return true, nil
	default:
		return false, fmt.Errorf("%w: unknown session command %s (try :help)", ErrUsage, command)
	}
}

func optional(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func (in *Interpreter) printHelp() {
	fmt.Fprintln(in.out, "Session commands:")
	for _, c := range metaCommands {
		fmt.Fprintf(in.out, "  %-22s %s\n", strings.TrimSpace(c.name+" "+c.args), c.help)
	}
	fmt.Fprintln(in.out, "  COMMAND ARGS...        run a bound command")
}

// RunScript executes r line by line and stops at the first failing line.
// Blank lines and lines starting with # are skipped.
func (in *Interpreter) RunScript(ctx context.Context, r io.Reader, name string) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		quit, err := in.Execute(ctx, line)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", name, lineNo, err)
		}
		if quit {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	return nil
}
