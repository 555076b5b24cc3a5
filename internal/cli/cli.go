package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/dotmod/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Invocation is a parsed command line.
type Invocation struct {
	Config *config.Config
	// ConfigPath is the config file that was read, "" when none was.
	ConfigPath string
	// Command is "" when none was given.
	Command string
	Args    []string
}

// arity is the number of arguments each command accepts; max -1 is unbounded.
var arity = map[string]struct{ min, max int }{
	"load":      {1, -1},
	"unload":    {1, -1},
	"loaded":    {0, 1},
	"available": {0, 1},
	"defs":      {1, 1},
	"run":       {1, -1},
	"shell":     {0, 0},
	"script":    {1, 1},
}

// Parse processes command-line arguments. It returns the invocation, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer, getenv func(string) string) (*Invocation, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("dotmod", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
dotmod - load and unload named command modules into a session.

Usage:
  dotmod [options] <command> [args]

Commands:
  load NAME...        load modules and print the loaded report
  unload NAME...      unload modules (after -preload)
  loaded [FILTER]     list loaded modules
  available [FILTER]  list modules in the source directory
  defs FILE|NAME      list the functions and shortcuts a backing file declares
  run COMMAND [ARGS]  run a command from the preloaded modules
  shell               interactive session (default on a terminal)
  script FILE|-       run session commands line by line

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the YAML config file (default $DOTMOD_CONFIG or ~/.config/dotmod/config.yaml).")
	sourceDirFlag := flagSet.String("source-dir", "", "Directory holding backing files.")
	prefixFlag := flagSet.String("prefix", "", "Backing-file name prefix.")
	extFlag := flagSet.String("ext", "", "Comma-separated backing-file extensions, tried in order.")
	preloadFlag := flagSet.String("preload", "", "Comma-separated modules to load before the command runs.")
	shellFlag := flagSet.String("shell", "", "Shell used for shell modules, scripts and shortcuts.")
	logLevelFlag := flagSet.String("log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'text' or 'json'.")
	noColorFlag := flagSet.Bool("no-color", false, "Disable colored output.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	cfg, path, err := config.Load(*configFlag, getenv)
	if err != nil {
		return nil, false, &ExitError{Code: 3, Message: err.Error()}
	}

	// Flags only override what was set explicitly.
	var flagErr error
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source-dir":
			cfg.SourceDir, flagErr = config.ResolveDir(*sourceDirFlag, getenv("HOME"))
		case "prefix":
			cfg.Prefix = *prefixFlag
		case "ext":
			cfg.Extensions = config.SplitList(*extFlag)
		case "preload":
			cfg.Preload = config.SplitList(*preloadFlag)
		case "shell":
			cfg.Shell = *shellFlag
		case "log-level":
			cfg.LogLevel = strings.ToLower(*logLevelFlag)
		case "log-format":
			cfg.LogFormat = strings.ToLower(*logFormatFlag)
		case "no-color":
			cfg.NoColor = *noColorFlag
		}
	})

	if flagErr != nil {
		return nil, false, &ExitError{Code: 2, Message: flagErr.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Configuration validation complete.", "config_path", path)

	inv := &Invocation{Config: cfg, ConfigPath: path}
	if flagSet.NArg() == 0 {
		return inv, false, nil
	}

	inv.Command, inv.Args = flagSet.Arg(0), flagSet.Args()[1:]
	a, ok := arity[inv.Command]
	if !ok {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q (see -h)", inv.Command)}
	}
	if len(inv.Args) < a.min || (a.max >= 0 && len(inv.Args) > a.max) {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("wrong number of arguments for %q (see -h)", inv.Command)}
	}

	slog.Debug("CLI parser finished successfully.", "command", inv.Command, "args", inv.Args)
	return inv, false, nil
}
