package loader

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/dotmod/internal/config"
	"github.com/vk/dotmod/internal/ctxlog"
	"github.com/vk/dotmod/internal/handlers"
	"github.com/vk/dotmod/internal/registry"
	"github.com/vk/dotmod/internal/session"
	"github.com/vk/dotmod/internal/shell"
)

// fakeRunner records every external command instead of running it.
type fakeRunner struct {
	mu       sync.Mutex
	commands []*shell.Command
	// fn, when set, decides the outcome of each command.
	fn func(ctx context.Context, cmd *shell.Command) error
}

func (r *fakeRunner) Run(ctx context.Context, cmd *shell.Command) error {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()
	if r.fn != nil {
		return r.fn(ctx, cmd)
	}
	return nil
}

func (r *fakeRunner) last() *shell.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.commands) == 0 {
		return nil
	}
	return r.commands[len(r.commands)-1]
}

type fixture struct {
	dir      string
	cfg      *config.Config
	loader   *Loader
	runner   *fakeRunner
	handlers *handlers.Handlers
	logs     *bytes.Buffer
	ctx      context.Context
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	cfg := config.Defaults()
	cfg.SourceDir = dir

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	hnd := handlers.New()
	hnd.Register("echo.Echo", &handlers.Handler{
		Description: "prints its arguments",
		Fn: func(ctx context.Context, call *handlers.Call) error {
			_, err := call.Stdout.Write([]byte(strings.Join(call.Args, " ") + "\n"))
			return err
		},
	})

	runner := &fakeRunner{}
	f := &fixture{
		dir:      dir,
		cfg:      cfg,
		runner:   runner,
		handlers: hnd,
		logs:     logs,
		ctx:      ctxlog.WithLogger(context.Background(), logger),
	}
	f.loader = New(cfg, registry.New(), session.New(), hnd, runner)

	t.Cleanup(func() {
		if os.Getenv("DOTMOD_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return f
}

func (f *fixture) path(name string) string {
	return filepath.Join(f.dir, name)
}

const alphaSh = `# Description: sample alpha
greet() { # says hello
  echo "hello $1"
}
alias gg='git grep' # grep shortcut
alias hi='greet world' # greets the world
`

const betaSh = `# no marker in this one
beta_fn() { # does beta things
  :
}
`

const gitHCL = `
description = "git helpers"

function "say" {
  description = "echoes with a prefix"
  handler     = "echo.Echo"
  args        = ["git:"]
}

function "st" {
  script = "git status -sb \"$@\""
}

alias "sayhi" {
  command     = "say 'hi there'"
  description = "says hi"
}
`
