package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/vk/dotmod/internal/config"
	"github.com/vk/dotmod/internal/ctxlog"
	"github.com/vk/dotmod/internal/handlers"
	"github.com/vk/dotmod/internal/loader"
	"github.com/vk/dotmod/internal/registry"
	"github.com/vk/dotmod/internal/session"
	"github.com/vk/dotmod/internal/shell"
	"github.com/vk/dotmod/internal/watch"
)

// App encapsulates one session's dependencies and its lifecycle.
type App struct {
	outW     io.Writer
	errW     io.Writer
	ctx      context.Context
	logger   *slog.Logger
	config   *config.Config
	handlers *handlers.Handlers
	session  *session.Session
	loader   *loader.Loader
	printer  *loader.Printer
	watcher  *watch.Watcher
}

// NewApp is the constructor for the main application. Reports go to outW,
// logs go to errW. A nil runner runs commands as real processes; with no
// modules the core modules are registered.
func NewApp(outW, errW io.Writer, cfg *config.Config, runner shell.Runner, modules ...handlers.Module) *App {
	logger := newLogger(cfg, errW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	hnd := handlers.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	hnd.RegisterAll(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "handlers", hnd.Names())

	if runner == nil {
		runner = shell.NewExecRunner()
	}

	sess := session.New()
	return &App{
		outW:     outW,
		errW:     errW,
		ctx:      ctx,
		logger:   logger,
		config:   cfg,
		handlers: hnd,
		session:  sess,
		loader:   loader.New(cfg, registry.New(), sess, hnd, runner),
		printer:  loader.NewPrinter(outW, !cfg.NoColor && !color.NoColor),
	}
}

// Context returns the session's base context, which carries its logger.
func (a *App) Context() context.Context {
	return a.ctx
}

// Config returns the session configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Loader returns the session's module loader. This is primarily for testing.
func (a *App) Loader() *loader.Loader {
	return a.loader
}

// Session returns the session's dispatch table.
func (a *App) Session() *session.Session {
	return a.session
}

// Preload loads the modules named in the configuration. Every name is
// attempted; the failures are returned together.
func (a *App) Preload(ctx context.Context) error {
	var errs []error
	for _, name := range a.config.Preload {
		if err := a.loader.Load(ctx, name); err != nil {
			a.logger.Warn("Preload failed.", "module", name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Load loads each module in order and stops at the first failure.
func (a *App) Load(ctx context.Context, names ...string) error {
	for _, name := range names {
		if err := a.loader.Load(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Unload unloads each module in order and stops at the first failure.
func (a *App) Unload(ctx context.Context, names ...string) error {
	for _, name := range names {
		if err := a.loader.Unload(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// PrintLoaded writes the loaded-modules report.
func (a *App) PrintLoaded(ctx context.Context, filter string) error {
	mods, err := a.loader.ListLoaded(ctx, filter)
	if err != nil {
		return err
	}
	a.printer.Loaded(mods)
	return nil
}

// PrintAvailable writes the available-modules report.
func (a *App) PrintAvailable(ctx context.Context, filter string) error {
	mods, err := a.loader.ListAvailable(ctx, filter)
	if err != nil {
		return err
	}
	a.printer.Available(mods)
	return nil
}

// PrintDefinitions writes the functions and shortcuts a backing file declares.
func (a *App) PrintDefinitions(ctx context.Context, file string) error {
	defs, err := a.loader.ListDefinitions(ctx, file)
	if err != nil {
		return err
	}
	a.printer.Definitions(defs)
	return nil
}

// PrintCommands writes every bound command with its owning module.
func (a *App) PrintCommands() {
	var entries []loader.Entry
	for _, name := range a.session.Commands() {
		b, _ := a.session.Lookup(name)
		entries = append(entries, loader.Entry{
			Name:        name,
			Description: fmt.Sprintf("%s [%s %s]", b.Description, b.Module, b.Kind),
		})
	}
	for _, line := range loader.AlignEntries(entries) {
		fmt.Fprintln(a.outW, line)
	}
}

// Dispatch runs a bound command with the session's output streams.
func (a *App) Dispatch(ctx context.Context, stdin io.Reader, command string, args []string) error {
	return a.session.Dispatch(ctx, command, args, session.Stdio{
		Stdin:  stdin,
		Stdout: a.outW,
		Stderr: a.errW,
	})
}

// Watch starts reporting deleted backing files. It does nothing while no
// source directory is configured.
func (a *App) Watch(ctx context.Context) error {
	if a.config.SourceDir == "" || a.watcher != nil {
		return nil
	}
	w, err := watch.New(ctx, a.config.SourceDir)
	if err != nil {
		return err
	}
	a.watcher = w
	return nil
}

// CheckMissing drains the watcher and warns about every loaded module whose
// backing file has been removed. It returns those module names.
func (a *App) CheckMissing(ctx context.Context) []string {
	if a.watcher == nil {
		return nil
	}
	removed := a.watcher.Drain()
	if len(removed) == 0 {
		return nil
	}

	gone := make(map[string]bool, len(removed))
	for _, path := range removed {
		gone[path] = true
	}

	var missing []string
	for _, name := range a.loader.Registry().All() {
		path, _ := a.loader.PathOf(name)
		if gone[path] {
			ctxlog.FromContext(ctx).Warn("Backing file of loaded module was removed.", "module", name, "path", path)
			missing = append(missing, name)
		}
	}
	return missing
}

// Close releases the watcher, if one is running.
func (a *App) Close() error {
	if a.watcher == nil {
		return nil
	}
	err := a.watcher.Close()
	a.watcher = nil
	return err
}
