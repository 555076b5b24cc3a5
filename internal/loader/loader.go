package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/vk/dotmod/internal/config"
	"github.com/vk/dotmod/internal/ctxlog"
	"github.com/vk/dotmod/internal/fsutil"
	"github.com/vk/dotmod/internal/handlers"
	"github.com/vk/dotmod/internal/manifest"
	"github.com/vk/dotmod/internal/registry"
	"github.com/vk/dotmod/internal/session"
	"github.com/vk/dotmod/internal/shell"
)

var (
	validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

	errSourceDirUnset = errors.New("source directory is not configured (set source_dir, $DOTMOD_SOURCE_DIR or -source-dir)")
	errNameRequired   = errors.New("module name is required")
	errBusy           = errors.New("load/unload called while another load/unload is running")
)

// Loader owns the registry and mutates the session's dispatch table. It is
// not safe for concurrent use.
type Loader struct {
	cfg      *config.Config
	registry *registry.Registry
	session  *session.Session
	handlers *handlers.Handlers
	runner   shell.Runner

	// paths records the backing file each loaded module was loaded from.
	paths map[string]string
	busy  bool
}

// New creates a Loader. The registry starts as given (normally empty).
func New(cfg *config.Config, reg *registry.Registry, sess *session.Session, hnd *handlers.Handlers, runner shell.Runner) *Loader {
	return &Loader{
		cfg:      cfg,
		registry: reg,
		session:  sess,
		handlers: hnd,
		runner:   runner,
		paths:    make(map[string]string),
	}
}

// Registry returns the loader's registry.
func (l *Loader) Registry() *registry.Registry {
	return l.registry
}

// Session returns the dispatch table the loader binds into.
func (l *Loader) Session() *session.Session {
	return l.session
}

// PathOf returns the backing file a loaded module was loaded from.
func (l *Loader) PathOf(name string) (string, bool) {
	path, ok := l.paths[name]
	return path, ok
}

func (l *Loader) enter(name string) error {
	if l.busy {
		return newError(KindReentrancy, name, "", errBusy)
	}
	l.busy = true
	return nil
}

func (l *Loader) leave() {
	l.busy = false
}

func (l *Loader) checkConfigured(name string) error {
	if l.cfg == nil || l.cfg.SourceDir == "" {
		return newError(KindConfiguration, name, "", errSourceDirUnset)
	}
	return nil
}

// sourceDir returns the configured source directory as an absolute path.
// Backing files are handed to the shell with a different working directory,
// so relative paths would not resolve there.
func (l *Loader) sourceDir() string {
	dir, err := filepath.Abs(l.cfg.SourceDir)
	if err != nil {
		return l.cfg.SourceDir
	}
	return dir
}

func checkName(name string) error {
	if name == "" {
		return newError(KindValidation, "", "", errNameRequired)
	}
	if !validName.MatchString(name) || strings.Contains(name, "..") {
		return newError(KindValidation, name, "", fmt.Errorf("invalid module name %q", name))
	}
	return nil
}

// Load resolves name to its backing file, imports it and records it as
// loaded. Loading an already loaded module imports the file again and
// replaces the module's bindings; the registry keeps a single entry.
func (l *Loader) Load(ctx context.Context, name string) error {
	if err := l.enter(name); err != nil {
		return err
	}
	defer l.leave()

	if err := l.checkConfigured(name); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}

	ctx = ctxlog.With(ctx, "module", name)
	logger := ctxlog.FromContext(ctx)
	dir := l.sourceDir()
	logger.Debug("Loading module...", "source_dir", dir)

	path, found, err := fsutil.Resolve(dir, l.cfg.Prefix, name, l.cfg.Extensions)
	if err != nil {
		return newError(KindNotFound, name, "", fmt.Errorf("failed to resolve backing file: %w", err))
	}
	if !found {
		return newError(KindNotFound, name, "", fmt.Errorf("no backing file %s in %s",
			fsutil.FileName(l.cfg.Prefix, name, "{"+strings.Join(l.cfg.Extensions, ",")+"}"), dir))
	}

	m, err := l.parse(ctx, name, path)
	if err != nil {
		return err
	}

	if m.Format == manifest.FormatShell {
		if err := l.source(ctx, name, path); err != nil {
			return err
		}
	}

	bindings, err := l.buildBindings(name, m)
	if err != nil {
		return newError(KindImport, name, path, err)
	}

	// Nothing below can fail: the module is imported.
	for _, command := range l.session.OwnedBy(name) {
		_ = l.session.Unbind(command, name)
	}
	for _, b := range bindings {
		if previous := l.session.Bind(b); previous != "" && previous != name {
			logger.Warn("Command taken over from another module.", "command", b.Command, "previous_module", previous)
		}
	}

	reloaded := l.registry.Contains(name)
	l.registry.Add(name)
	l.paths[name] = path

	logger.Info("Module loaded.", "path", path, "functions", len(m.Functions), "shortcuts", len(m.Shortcuts), "reloaded", reloaded)
	return nil
}

// parse reads a backing file and classifies failures for Load.
func (l *Loader) parse(ctx context.Context, name, path string) (*manifest.Manifest, error) {
	m, err := manifest.ParseFile(ctx, path)
	if err == nil {
		return m, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, newError(KindNotFound, name, path, err)
	}
	return nil, newError(KindImport, name, path, err)
}

// source runs a shell-format backing file once; a non-zero exit means the
// file cannot be imported. The shell's stderr becomes part of the error.
func (l *Loader) source(ctx context.Context, name, path string) error {
	stderr := &bytes.Buffer{}
	cmd := shell.Source(l.cfg.Shell, path)
	cmd.Stderr = stderr
	cmd.Dir = filepath.Dir(path)

	if err := l.runner.Run(ctx, cmd); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return newError(KindImport, name, path, fmt.Errorf("sourcing %s failed: %w", path, err))
	}
	return nil
}

// Unload removes name's commands from the session and drops it from the
// registry. A backing file that has disappeared only produces a warning, and
// commands another module has taken over are left alone; neither stops the
// registry entry from being removed.
func (l *Loader) Unload(ctx context.Context, name string) error {
	if err := l.enter(name); err != nil {
		return err
	}
	defer l.leave()

	if err := l.checkConfigured(name); err != nil {
		return err
	}
	if name == "" {
		return newError(KindValidation, "", "", errNameRequired)
	}
	if !l.registry.Contains(name) {
		return newError(KindNotLoaded, name, "", errors.New("module is not loaded"))
	}

	ctx = ctxlog.With(ctx, "module", name)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Unloading module...")

	path := l.paths[name]
	if !fsutil.Exists(path) {
		logger.Warn("Backing file of loaded module is missing; unloading it anyway.", "path", path)
	} else if m, err := manifest.ParseFile(ctx, path); err != nil {
		logger.Warn("Could not re-read backing file; removing the commands the module still owns.", "path", path, "error", err)
	} else {
		for _, command := range declaredCommands(m) {
			b, bound := l.session.Lookup(command)
			if bound && b.Module != name {
				logger.Warn("Command now belongs to another module; leaving it bound.", "command", command, "owner", b.Module)
			}
		}
	}

	removed := 0
	for _, command := range l.session.OwnedBy(name) {
		if err := l.session.Unbind(command, name); err != nil {
			logger.Warn("Failed to remove command.", "command", command, "error", err)
			continue
		}
		removed++
	}

	l.registry.Remove(name)
	delete(l.paths, name)

	logger.Info("Module unloaded.", "commands_removed", removed)
	return nil
}

func declaredCommands(m *manifest.Manifest) []string {
	names := make([]string, 0, len(m.Functions)+len(m.Shortcuts))
	for _, fn := range m.Functions {
		names = append(names, fn.Name)
	}
	for _, sc := range m.Shortcuts {
		names = append(names, sc.Name)
	}
	return names
}
