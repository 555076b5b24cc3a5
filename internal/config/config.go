package config

import (
	"errors"
	"fmt"
	"strings"
)

// Config holds everything a session needs to resolve and run modules.
type Config struct {
	// SourceDir is the directory holding backing files. Loader operations
	// fail with a configuration error while it is empty.
	SourceDir string `yaml:"source_dir"`
	// Prefix is the file-name prefix: "<prefix>_<name><ext>".
	Prefix string `yaml:"prefix"`
	// Extensions are tried in order when resolving a module name.
	Extensions []string `yaml:"extensions"`
	// Shell runs shell-format modules, scripts and shortcuts.
	Shell string `yaml:"shell"`
	// Preload lists modules loaded when the session starts.
	Preload []string `yaml:"preload"`

	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	NoColor     bool   `yaml:"no_color"`
	HistoryFile string `yaml:"history_file"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		Prefix:     "mod",
		Extensions: []string{".hcl", ".sh"},
		Shell:      "sh",
		LogLevel:   "warn",
		LogFormat:  "text",
	}
}

// Validate checks the fields that have a fixed vocabulary or syntax. An
// empty SourceDir is allowed here; the loader reports it when used.
func (c *Config) Validate() error {
	var errs []error

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log_level %q: must be 'debug', 'info', 'warn', or 'error'", c.LogLevel))
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log_format %q: must be 'text' or 'json'", c.LogFormat))
	}

	if c.Prefix == "" {
		errs = append(errs, errors.New("prefix must not be empty"))
	} else if strings.ContainsAny(c.Prefix, `/\`) {
		errs = append(errs, fmt.Errorf("invalid prefix %q: must not contain path separators", c.Prefix))
	}

	if len(c.Extensions) == 0 {
		errs = append(errs, errors.New("at least one extension is required"))
	}
	for _, ext := range c.Extensions {
		if len(ext) < 2 || ext[0] != '.' || strings.ContainsAny(ext[1:], `./\`) {
			errs = append(errs, fmt.Errorf("invalid extension %q: must look like '.sh'", ext))
		}
	}

	if c.Shell == "" {
		errs = append(errs, errors.New("shell must not be empty"))
	}

	return errors.Join(errs...)
}
