package app

import (
	"io"
	"log/slog"

	"github.com/vk/dotmod/internal/config"
)

// logLevels maps config.Config.LogLevel values to slog levels. Anything else
// is warn.
var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// newLogger builds the session logger from the configuration. Logs go to
// errW so that reports and command output on stdout stay clean. It does not
// set the global logger.
func newLogger(cfg *config.Config, errW io.Writer) *slog.Logger {
	level, ok := logLevels[cfg.LogLevel]
	if !ok {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(errW, opts))
	}
	return slog.New(slog.NewTextHandler(errW, opts))
}
