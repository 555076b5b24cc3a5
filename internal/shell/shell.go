// Package shell runs external commands on behalf of loaded modules: sourcing
// shell-format backing files, calling shell functions and scripts, and
// expanding shortcuts that point at tools outside the session.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/vk/dotmod/internal/ctxlog"
)

// Command describes one external process invocation.
type Command struct {
	Path   string
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Dir    string
}

// String renders the command line for logs.
func (c *Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, cmd *Command) error
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd *Command) error

// Run calls f(ctx, cmd).
func (f RunnerFunc) Run(ctx context.Context, cmd *Command) error {
	return f(ctx, cmd)
}

// ExecRunner runs commands with os/exec, inheriting the process environment.
type ExecRunner struct{}

// NewExecRunner creates a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run starts the command and waits for it to finish. A non-zero exit status
// is returned as an *ExitError.
func (r *ExecRunner) Run(ctx context.Context, c *Command) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Running external command.", "command", c.String(), "dir", c.Dir)

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = io.Discard
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		logger.Debug("External command failed.", "command", c.Path, "exit_code", exitErr.ExitCode())
		return &ExitError{Command: c.Path, Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("failed to run %s: %w", c.Path, err)
}

// ExitError reports a command that ran but finished with a non-zero status.
type ExitError struct {
	Command string
	Code    int
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

// ExitCode returns the exit status carried by err, 0 for nil and 1 for any
// error that did not come from a finished process.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
