package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/dotmod/internal/ctxlog"
)

// NoDescription is shown when a backing file declares no description.
const NoDescription = "(no description)"

// Format identifies how a backing file is written.
type Format string

const (
	FormatHCL   Format = "hcl"
	FormatShell Format = "shell"
)

// Function is a command declared with a body: a Go handler or a script in
// HCL manifests, a shell function in shell files.
type Function struct {
	Name        string
	Description string
	// Handler is the catalog name of a compiled-in handler (HCL only).
	Handler string
	// Script is an inline shell body (HCL only).
	Script string
	// Args are prepended to the caller's arguments (HCL only).
	Args []string
}

// Shortcut is a name bound to a command line.
type Shortcut struct {
	Name        string
	Description string
	Command     string
}

// Manifest is everything a backing file declares.
type Manifest struct {
	Path        string
	Format      Format
	Description string
	Functions   []Function
	Shortcuts   []Shortcut
}

// DescriptionOrPlaceholder returns the file description, or NoDescription.
func (m *Manifest) DescriptionOrPlaceholder() string {
	if m.Description == "" {
		return NoDescription
	}
	return m.Description
}

// FormatFor picks the parser for a file by its extension.
func FormatFor(path string) Format {
	if filepath.Ext(path) == ".hcl" {
		return FormatHCL
	}
	return FormatShell
}

// ParseFile reads and parses the backing file at path. Read errors are
// returned as-is so callers can test for fs.ErrNotExist; syntax problems are
// returned as *ParseError.
func ParseFile(ctx context.Context, path string) (*Manifest, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing backing file.", "path", path)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m *Manifest
	switch FormatFor(path) {
	case FormatHCL:
		m, err = ParseHCL(ctx, src, path)
	default:
		m = ParseShell(src)
	}
	if err != nil {
		return nil, err
	}
	m.Path = path

	logger.Debug("Parsed backing file.", "path", path, "format", m.Format, "functions", len(m.Functions), "shortcuts", len(m.Shortcuts))
	return m, nil
}

// ParseError reports a backing file that could not be understood.
type ParseError struct {
	Path string
	Err  error
}

// Error implements the error interface for ParseError.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error, usually hcl.Diagnostics.
func (e *ParseError) Unwrap() error {
	return e.Err
}
