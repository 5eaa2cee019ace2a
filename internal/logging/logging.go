// Package logging builds the slog loggers used by tl.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the optional log file.
const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 3
	logFileMaxAgeDays = 30
)

// Options selects where and how much to log.
type Options struct {
	Level  slog.Level
	Format string    // "text" (default) or "json"
	Stderr io.Writer // console output; nil disables it
	File   string    // rotated log file; empty disables it
}

// New returns a logger for opts and a close function for the log file.
// With neither Stderr nor File set, the logger discards everything.
func New(opts Options) (*slog.Logger, func() error, error) {
	var (
		handlers []slog.Handler
		closers  []io.Closer
	)

	if opts.Stderr != nil {
		handlers = append(handlers, NewHandler(opts.Stderr, opts.Format, opts.Level))
	}

	if opts.File != "" {
		err := os.MkdirAll(filepath.Dir(opts.File), 0o750)
		if err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}

		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
			MaxAge:     logFileMaxAgeDays,
			Compress:   true,
		}

		closers = append(closers, file)
		handlers = append(handlers, NewHandler(file, opts.Format, opts.Level))
	}

	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c.Close())
		}

		return errors.Join(errs...)
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.DiscardHandler), closeAll, nil
	case 1:
		return slog.New(handlers[0]), closeAll, nil
	default:
		return slog.New(NewMultiHandler(handlers...)), closeAll, nil
	}
}

// NewHandler returns a text or JSON handler writing to w.
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}

	return slog.NewTextHandler(w, opts)
}
