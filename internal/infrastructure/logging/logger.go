// Package logging provides structured logging utilities.
//
// Logs are formatted in Maven-style with colors:
// [LEVEL] [SYSTEM] [HH:MM:SS] message key=value
//
// When a log file is configured, every record is also written to a
// size-rotated file through lumberjack.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/eshaffer321/preorder-gather/internal/infrastructure/config"
)

// ParseLevel maps a config level name to a slog level. Unknown names are INFO.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// NewLogger creates a structured logger writing to stdout and, when
// cfg.File is set, to a rotated log file. The returned closer releases
// the file and is safe to call when no file is open.
func NewLogger(cfg config.LoggingConfig) (*slog.Logger, io.Closer) {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg config.LoggingConfig, stdout io.Writer) (*slog.Logger, io.Closer) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var console slog.Handler
	if cfg.Format == "json" {
		console = slog.NewJSONHandler(stdout, opts)
	} else {
		console = NewMavenHandler(stdout, opts)
	}

	if cfg.File == "" {
		return slog.New(console), nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    orDefault(cfg.MaxSizeMB, 50),
		MaxBackups: orDefault(cfg.MaxBackups, 5),
		MaxAge:     orDefault(cfg.MaxAgeDays, 30),
	}
	// Files always get the plain Maven layout; the writer is never a terminal.
	handler := &fanout{handlers: []slog.Handler{console, NewMavenHandler(file, opts)}}
	return slog.New(handler), file
}

// NewLoggerWithSystem creates a logger with a system prefix (e.g., "pipeline", "square")
func NewLoggerWithSystem(cfg config.LoggingConfig, system string) (*slog.Logger, io.Closer) {
	logger, closer := NewLogger(cfg)
	return logger.With("system", system), closer
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fanout sends each record to every handler that accepts its level.
type fanout struct {
	handlers []slog.Handler
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanout{handlers: next}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanout{handlers: next}
}
