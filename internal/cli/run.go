package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vk/dotmod/internal/app"
	"github.com/vk/dotmod/internal/loader"
	"github.com/vk/dotmod/internal/repl"
	"github.com/vk/dotmod/internal/session"
	"github.com/vk/dotmod/internal/shell"
)

// Exit codes.
const (
	ExitOK            = 0
	ExitOther         = 1
	ExitUsage         = 2
	ExitConfiguration = 3
	ExitNotFound      = 4
	ExitNotLoaded     = 5
	ExitImport        = 6
	ExitCommand       = 7
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch loader.KindOf(err) {
	case loader.KindValidation:
		return ExitUsage
	case loader.KindConfiguration:
		return ExitConfiguration
	case loader.KindNotFound:
		return ExitNotFound
	case loader.KindNotLoaded:
		return ExitNotLoaded
	case loader.KindImport:
		return ExitImport
	case loader.KindReentrancy:
		return ExitOther
	}

	var shellErr *shell.ExitError
	switch {
	case errors.Is(err, repl.ErrUsage), errors.Is(err, session.ErrUnterminatedQuote):
		return ExitUsage
	case errors.Is(err, session.ErrUnknownCommand), errors.Is(err, session.ErrTooDeep), errors.As(err, &shellErr):
		return ExitCommand
	}
	return ExitOther
}

// Run executes a parsed invocation against a. stdin feeds dispatched
// commands and "script -"; interactive selects the shell when no command
// was given. Failures come back as *ExitError.
func Run(ctx context.Context, a *app.App, inv *Invocation, stdin io.Reader, outW, errW io.Writer, interactive bool) error {
	command := inv.Command
	if command == "" {
		if !interactive {
			return &ExitError{Code: ExitUsage, Message: "no command given (see dotmod -h)"}
		}
		command = "shell"
	}

	// Preload failures are logged by the app; the command still runs.
	_ = a.Preload(ctx)

	err := run(ctx, a, command, inv.Args, stdin, outW, errW)
	if err == nil {
		return nil
	}

	code := ExitCode(err)
	if (command == "run" || command == "script") && code == ExitOther {
		code = ExitCommand
	}
	return &ExitError{Code: code, Message: err.Error()}
}

func run(ctx context.Context, a *app.App, command string, args []string, stdin io.Reader, outW, errW io.Writer) error {
	switch command {
	case "load":
		if err := a.Load(ctx, args...); err != nil {
			return err
		}
		return a.PrintLoaded(ctx, "")
	case "unload":
		return a.Unload(ctx, args...)
	case "loaded":
		return a.PrintLoaded(ctx, optional(args))
	case "available":
		return a.PrintAvailable(ctx, optional(args))
	case "defs":
		return a.PrintDefinitions(ctx, args[0])
	case "run":
		return a.Dispatch(ctx, stdin, args[0], args[1:])
	case "shell":
		return repl.NewInterpreter(a, stdin, outW).Start(ctx, errW, a.Config().HistoryFile)
	case "script":
		in := repl.NewInterpreter(a, stdin, outW)
		if args[0] == "-" {
			return in.RunScript(ctx, stdin, "<stdin>")
		}
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("cannot open script: %w", err)
		}
		defer f.Close()
		return in.RunScript(ctx, f, args[0])
	default:
		return &ExitError{Code: ExitUsage, Message: fmt.Sprintf("unknown command %q", command)}
	}
}

func optional(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
