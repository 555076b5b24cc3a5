package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	"github.com/vk/dotmod/internal/ctxlog"
)

const prompt = "dotmod> "

// Start runs the interactive session until :quit or Ctrl-D. Ctrl-C clears
// the current line or interrupts the running command.
func (in *Interpreter) Start(ctx context.Context, errW io.Writer, historyFile string) error {
	logger := ctxlog.FromContext(ctx)

	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(current string) []string {
		return in.complete(ctx, current)
	})

	if historyFile == "" {
		historyFile = filepath.Join(os.TempDir(), ".dotmod_history")
	}
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		} else {
			logger.Warn("Failed to save history.", "path", historyFile, "error", err)
		}
	}()

	if err := in.app.Watch(ctx); err != nil {
		logger.Warn("Source directory is not watched.", "error", err)
	}

	errPrefix := color.New(color.FgRed, color.Bold).Sprint("error:")
	fmt.Fprintln(in.out, "Type :help for session commands, Ctrl+D to quit.")

	for {
		in.app.CheckMissing(ctx)

		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(in.out, "^C")
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(in.out)
				return nil
			}
			return fmt.Errorf("error reading input: %w", err)
		}

		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		lineCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		quit, err := in.Execute(lineCtx, input)
		stop()
		if err != nil {
			fmt.Fprintln(errW, errPrefix, err)
		}
		if quit {
			return nil
		}
	}
}

// complete offers session commands, bound commands and, after :load,
// :unload or :defs, module names.
func (in *Interpreter) complete(ctx context.Context, current string) []string {
	fields := strings.Fields(current)
	if len(fields) == 0 || (len(fields) == 1 && !strings.HasSuffix(current, " ")) {
		var candidates []string
		for _, c := range metaCommands {
			candidates = append(candidates, c.name)
		}
		candidates = append(candidates, in.app.Session().Commands()...)
		return withPrefix(candidates, "", current)
	}

	var names []string
	switch fields[0] {
	case ":load", ":l", ":defs":
		mods, err := in.app.Loader().ListAvailable(ctx, "")
		if err != nil {
			return nil
		}
		for _, m := range mods {
			names = append(names, m.Name)
		}
	case ":unload", ":u":
		names = in.app.Loader().Registry().All()
	default:
		return nil
	}

	head, partial := current, ""
	if i := strings.LastIndex(current, " "); i >= 0 {
		head, partial = current[:i+1], current[i+1:]
	}
	return withPrefix(names, head, partial)
}

func withPrefix(candidates []string, head, partial string) []string {
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(c, partial) {
			out = append(out, head+c)
		}
	}
	sort.Strings(out)
	return out
}
