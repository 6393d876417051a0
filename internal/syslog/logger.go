// File: internal/syslog/logger.go
package syslog

import (
	"io"
	"log/slog"
	"os"
)

// Options configure New.
type Options struct {
	Level      *slog.LevelVar
	Format     string // "text" or "json"
	Output     io.Writer
	MaxEntries int
}

// New builds the process logger: a Sink in front of a text or JSON handler
// writing to opts.Output (stderr when nil).
func New(opts Options) (*slog.Logger, *Sink) {
	level := opts.Level
	if level == nil {
		level = new(slog.LevelVar)
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var next slog.Handler
	if opts.Format == "json" {
		next = slog.NewJSONHandler(out, handlerOpts)
	} else {
		next = slog.NewTextHandler(out, handlerOpts)
	}

	sink := NewSink(level, next, opts.MaxEntries)
	return slog.New(sink), sink
}

// OpenFile opens or creates the log file for appending.
func OpenFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// LevelFor maps verbosity to a log level: quiet runs log info and above,
// any verbosity enables debug.
func LevelFor(verbosity int) slog.Level {
	if verbosity > 0 {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
