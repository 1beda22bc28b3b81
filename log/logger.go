// Package log provides a small structured logging abstraction over log/slog.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel is the logger's minimum severity threshold.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	ErrorLevel
)

// Logger is the logging interface used throughout the service.
type Logger interface {
	Debug(msg string, args ...any)
	Debugf(format string, args ...any)
	Info(msg string, args ...any)
	Infof(format string, args ...any)
	Error(msg string, args ...any)
	Errorf(format string, args ...any)
	With(args ...any) Logger
}

// slogLogger implements Logger over log/slog, gating by logLevel since slog
// handlers don't expose a runtime-checkable minimum level on their own.
type slogLogger struct {
	logger   *slog.Logger
	logLevel LogLevel
}

// NewLogger creates a Logger writing to stderr at the given level
// ("debug", "info", or "error"; unrecognized values default to info).
func NewLogger(level string) Logger {
	return newLoggerTo(os.Stderr, level)
}

// NewLoggerTo creates a Logger writing to the given writer.
func NewLoggerTo(w io.Writer, level string) Logger {
	return newLoggerTo(w, level)
}

func newLoggerTo(w io.Writer, level string) Logger {
	lvl := parseLevel(level)
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: toSlogLevel(lvl),
	})
	return &slogLogger{
		logger:   slog.New(handler),
		logLevel: lvl,
	}
}

// NewNoopLogger creates a Logger that discards all output.
func NewNoopLogger() Logger {
	return &slogLogger{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		logLevel: ErrorLevel + 1,
	}
}

func (l *slogLogger) Debug(msg string, args ...any) {
	if l.logLevel > DebugLevel {
		return
	}
	l.logger.Debug(msg, args...)
}

func (l *slogLogger) Debugf(format string, args ...any) {
	if l.logLevel > DebugLevel {
		return
	}
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *slogLogger) Info(msg string, args ...any) {
	if l.logLevel > InfoLevel {
		return
	}
	l.logger.Info(msg, args...)
}

func (l *slogLogger) Infof(format string, args ...any) {
	if l.logLevel > InfoLevel {
		return
	}
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *slogLogger) Error(msg string, args ...any) {
	if l.logLevel > ErrorLevel {
		return
	}
	l.logger.Error(msg, args...)
}

func (l *slogLogger) Errorf(format string, args ...any) {
	if l.logLevel > ErrorLevel {
		return
	}
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{
		logger:   l.logger.With(args...),
		logLevel: l.logLevel,
	}
}

func parseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "dbg":
		return DebugLevel
	case "error", "err":
		return ErrorLevel
	case "info", "inf":
		return InfoLevel
	default:
		return InfoLevel
	}
}

func toSlogLevel(l LogLevel) slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case ErrorLevel:
		return slog.LevelError
	case InfoLevel:
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}
