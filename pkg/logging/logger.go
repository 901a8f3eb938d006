// Package logging provides structured logging configuration and utilities.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logging configuration.
type Config struct {
	Level  string
	Pretty bool
}

// NewLogger builds a slog logger writing to stderr so command output on
// stdout stays machine-readable. JSON handler by default; Pretty
// switches to the text handler for interactive use.
func NewLogger(cfg Config) *slog.Logger {
	return NewLoggerTo(os.Stderr, cfg)
}

// NewLoggerTo is NewLogger with an explicit destination, used by tests.
func NewLoggerTo(w io.Writer, cfg Config) *slog.Logger {
	logger, _ := newLogger(w, cfg)
	return logger
}

// NewReloadableLogger builds a stderr logger whose level can be changed
// at runtime through the returned LevelVar, so a config reload can flip
// to debug without restarting.
func NewReloadableLogger(cfg Config) (*slog.Logger, *slog.LevelVar) {
	return newLogger(os.Stderr, cfg)
}

func newLogger(w io.Writer, cfg Config) (*slog.Logger, *slog.LevelVar) {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(cfg.Level))
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Pretty {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler), level
}

// ParseLevel maps a textual level to a slog.Level. Unknown names fall
// back to info rather than failing; logging config should never stop a
// process from starting.
func ParseLevel(level string) slog.Level {
	switch strings.TrimSpace(strings.ToLower(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
