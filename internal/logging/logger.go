// Package logging provides the slog setup shared by catalog-export commands.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Format selects the slog handler.
type Format string

const (
	// FormatText writes key=value lines.
	FormatText Format = "text"
	// FormatJSON writes one JSON object per record.
	FormatJSON Format = "json"
)

// ParseFormat validates a format name. The empty string means FormatText.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown log format %q (want text or json)", s)
	}
}

// Options configures the logger returned by New.
type Options struct {
	// Verbose toggles debug level logging when true.
	Verbose bool
	// Writer directs log output; defaults to os.Stderr when nil.
	Writer io.Writer
	// Format picks the handler; defaults to FormatText.
	Format Format
}

// New constructs a slog.Logger from opts.
func New(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if opts.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(writer, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(writer, handlerOpts))
}

// Logger is the logging surface pipeline stages depend on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// SlogAdapter adapts *slog.Logger to Logger.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func (s *SlogAdapter) Debug(msg string, args ...any) { s.logger.Debug(msg, args...) }
func (s *SlogAdapter) Info(msg string, args ...any)  { s.logger.Info(msg, args...) }
func (s *SlogAdapter) Warn(msg string, args ...any)  { s.logger.Warn(msg, args...) }
func (s *SlogAdapter) Error(msg string, args ...any) { s.logger.Error(msg, args...) }

// With returns a Logger carrying args on every record.
func (s *SlogAdapter) With(args ...any) Logger {
	return &SlogAdapter{logger: s.logger.With(args...)}
}

var _ Logger = (*SlogAdapter)(nil)

// NopLogger discards everything.
type NopLogger struct{}

// NewNopLogger returns a Logger for tests that do not inspect logs.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (n *NopLogger) Debug(string, ...any) {}
func (n *NopLogger) Info(string, ...any)  {}
func (n *NopLogger) Warn(string, ...any)  {}
func (n *NopLogger) Error(string, ...any) {}
func (n *NopLogger) With(...any) Logger   { return n }

var _ Logger = (*NopLogger)(nil)
