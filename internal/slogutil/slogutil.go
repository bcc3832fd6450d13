// Package slogutil constructs the loggers used across the tool. Logs go
// to stderr so stdout stays clean for machine-readable command output.
package slogutil

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger creates a logger in the requested format. "json" emits one
// JSON object per record for log collectors; anything else is the
// human-readable text form.
func NewLogger(w io.Writer, format, level string) *slog.Logger {
	return NewLoggerAt(w, format, LevelFromString(level))
}

// NewLoggerAt is NewLogger with an explicit slog.Level, for callers that
// derive the level from CLI verbosity flags.
func NewLoggerAt(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewDiscardLogger creates a logger that drops everything.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// LevelFromString converts a level name to a slog.Level,
// case-insensitively. Unrecognized names fall back to info.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromVerbosity converts repeated -v flags to a slog.Level. quiet
// suppresses everything.
func LevelFromVerbosity(verbosity int, quiet bool) slog.Level {
	if quiet {
		return slog.Level(100)
	}
	switch verbosity {
	case 0:
		return slog.LevelWarn
	case 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
