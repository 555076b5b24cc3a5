package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/vk/dotmod/internal/ctxlog"
	"github.com/vk/dotmod/internal/fsutil"
	"github.com/vk/dotmod/internal/manifest"
)

// LoadedModule is one line of the loaded-modules report.
type LoadedModule struct {
	Name    string
	Path    string
	Present bool
}

// AvailableModule is one line of the available-modules report.
type AvailableModule struct {
	Name        string
	Path        string
	Description string
}

// Entry is a declared command and its description.
type Entry struct {
	Name        string
	Description string
}

// Definitions is what a backing file declares.
type Definitions struct {
	Path      string
	Functions []Entry
	Shortcuts []Entry
}

func matches(filter string, fields ...string) bool {
	if filter == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(f, filter) {
			return true
		}
	}
	return false
}

// ListLoaded reports every loaded module and whether its backing file still
// exists. A missing file is reported, not treated as an error.
func (l *Loader) ListLoaded(ctx context.Context, filter string) ([]LoadedModule, error) {
	if err := l.checkConfigured(""); err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx)

	var out []LoadedModule
	for _, name := range l.registry.All() {
		path := l.paths[name]
		if !matches(filter, name, path) {
			continue
		}
		present := fsutil.Exists(path)
		if !present {
			logger.Debug("Loaded module has no backing file.", "module", name, "path", path)
		}
		out = append(out, LoadedModule{Name: name, Path: path, Present: present})
	}
	return out, nil
}

// ListAvailable reports every backing file in the source directory with its
// description, independent of what is loaded. Files that fail to parse are
// still listed, with the placeholder description.
func (l *Loader) ListAvailable(ctx context.Context, filter string) ([]AvailableModule, error) {
	if err := l.checkConfigured(""); err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindModuleFiles(l.sourceDir(), l.cfg.Prefix, l.cfg.Extensions)
	if err != nil {
		return nil, newError(KindConfiguration, "", l.cfg.SourceDir, fmt.Errorf("cannot read source directory: %w", err))
	}

	var out []AvailableModule
	for _, f := range files {
		if !matches(filter, f.Name, f.Path) {
			continue
		}
		description := manifest.NoDescription
		if m, err := manifest.ParseFile(ctx, f.Path); err != nil {
			logger.Debug("Could not read module description.", "module", f.Name, "path", f.Path, "error", err)
		} else {
			description = m.DescriptionOrPlaceholder()
		}
		out = append(out, AvailableModule{Name: f.Name, Path: f.Path, Description: description})
	}
	return out, nil
}

// ListDefinitions parses a backing file and returns its functions and
// shortcuts. file may also be the name of a module in the source directory.
// It has no effect on the session.
func (l *Loader) ListDefinitions(ctx context.Context, file string) (*Definitions, error) {
	if file == "" {
		return nil, newError(KindValidation, "", "", errors.New("file path is required"))
	}

	path := file
	if !fsutil.Exists(path) && l.cfg != nil && l.cfg.SourceDir != "" && validName.MatchString(file) {
		if resolved, ok, _ := fsutil.Resolve(l.sourceDir(), l.cfg.Prefix, file, l.cfg.Extensions); ok {
			path = resolved
		}
	}

	m, err := manifest.ParseFile(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newError(KindNotFound, "", path, err)
		}
		return nil, newError(KindImport, "", path, err)
	}

	defs := &Definitions{Path: path}
	for _, fn := range m.Functions {
		desc := fn.Description
		if desc == "" && fn.Handler != "" {
			if h, ok := l.handlers.Lookup(fn.Handler); ok {
				desc = h.Description
			}
		}
		defs.Functions = append(defs.Functions, Entry{Name: fn.Name, Description: desc})
	}
	for _, sc := range m.Shortcuts {
		defs.Shortcuts = append(defs.Shortcuts, Entry{Name: sc.Name, Description: sc.Description})
	}
	return defs, nil
}
