// Package logging builds the slog loggers used across agentmem.
package logging

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// ToLogLevel maps a level name to a slog.Level. Unknown names map to info.
func ToLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a logger writing to stderr.
//
// Parameters:
//   - level: Minimum level name (debug, info, warn, error)
//   - handler: Output format, "json" for machine-readable logs, anything
//     else for tint's human-readable text format
func NewLogger(level string, handler string) *slog.Logger {
	slogLevel := ToLogLevel(level)

	var h slog.Handler
	switch handler {
	case "json":
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slogLevel,
		})
	default:
		h = tint.NewHandler(os.Stderr, &tint.Options{
			Level: slogLevel,
		})
	}

	return slog.New(h)
}
