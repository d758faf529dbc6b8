package logging

import (
	"log/slog"
	"os"
)

// NewLogger creates a structured logger appropriate for the
// environment. Production uses JSON format, development uses
// human-readable text. Logs go to stderr; stdout carries command
// output. Verbose lowers the level to debug regardless of environment.
func NewLogger(env string, verbose bool) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if env == "production" {
		if verbose {
			opts.Level = slog.LevelDebug
		}

		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
