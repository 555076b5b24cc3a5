package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/vk/dotmod/internal/app"
	"github.com/vk/dotmod/internal/cli"
)

// main is the entrypoint for the dotmod application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	interactive := isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())

	// The real main function handles errors and exit codes.
	if err := run(os.Stdin, os.Stdout, os.Stderr, os.Args[1:], interactive); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(stdin io.Reader, outW, errW io.Writer, args []string, interactive bool) (err error) {
	inv, shouldExit, err := cli.Parse(args, errW, os.Getenv)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// Handler registration panics on programmer errors, so we recover here to
	// provide a clean exit message to the user.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	dotmod := app.NewApp(outW, errW, inv.Config, nil)
	defer dotmod.Close()

	ctx := dotmod.Context()
	if inv.Command != "" && inv.Command != "shell" {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
	}

	return cli.Run(ctx, dotmod, inv, stdin, outW, errW, interactive)
}
