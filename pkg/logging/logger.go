// Package logging holds the process-wide structured logger and the bounded
// capture buffer that mirrors log lines into the terminal dashboard.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	defaultLogger *slog.Logger
	levelVar      = new(slog.LevelVar)
	mu            sync.RWMutex
)

func init() {
	levelVar.Set(slog.LevelInfo)
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: levelVar,
	}))
}

// Options selects the sinks built by Setup.
type Options struct {
	Level   slog.Level
	Format  string    // "text" or "json"
	Output  io.Writer // console or file sink; nil disables it
	Capture *Capture  // optional ring buffer sink
}

// Setup installs a logger that fans every record out to the console/file sink
// and the capture buffer. The level is shared, so SetLevel affects both.
func Setup(opts Options) *slog.Logger {
	levelVar.Set(opts.Level)

	var handlers []slog.Handler
	if opts.Output != nil {
		ho := &slog.HandlerOptions{Level: levelVar}
		if opts.Format == "json" {
			handlers = append(handlers, slog.NewJSONHandler(opts.Output, ho))
		} else {
			handlers = append(handlers, slog.NewTextHandler(opts.Output, ho))
		}
	}
	if opts.Capture != nil {
		handlers = append(handlers, NewCaptureHandler(opts.Capture, levelVar))
	}

	logger := slog.New(Tee(handlers...))
	SetLogger(logger)
	return logger
}

// ParseLevel accepts debug, info, warn and error (case-insensitive).
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// SetLogger sets the global logger
func SetLogger(logger *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

// SetLevel changes the level of the installed sinks without rebuilding them.
func SetLevel(level slog.Level) {
	levelVar.Set(level)
}

// Level returns the current minimum level.
func Level() slog.Level {
	return levelVar.Level()
}

// Logger returns the default logger
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// With returns a logger with additional context
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// Debug logs at debug level
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Info logs at info level
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs at warn level
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs at error level
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// InfoContext logs at info level with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	Logger().InfoContext(ctx, msg, args...)
}

// ErrorContext logs at error level with context
func ErrorContext(ctx context.Context, msg string, args ...any) {
	Logger().ErrorContext(ctx, msg, args...)
}

// Common field helpers

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Network(name string) slog.Attr {
	return slog.String("network", name)
}

func Peer(addr string) slog.Attr {
	return slog.String("peer", addr)
}

func Height(h uint32) slog.Attr {
	return slog.Uint64("height", uint64(h))
}
