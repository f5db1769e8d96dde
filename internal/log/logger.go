// Package log wraps slog.Logger with a component attribute.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Component names.
const (
	ComponentApp     = "app"
	ComponentStorage = "storage"
	ComponentSession = "session"
	ComponentTracker = "tracker"
	ComponentArchive = "archive"
	ComponentPrivacy = "privacy"
	ComponentOutlook = "outlook"
)

// Logger wraps slog.Logger with the name of the component that logs.
type Logger struct {
	*slog.Logger
	component string
}

// Config holds logger configuration.
type Config struct {
	Level     slog.Level
	Component string
	Output    io.Writer
}

// DefaultConfig logs info and above to stderr, keeping stdout free for
// command output.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
		Output:    os.Stderr,
	}
}

// New creates a logger writing text records to cfg.Output.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.Level})
	return &Logger{
		Logger:    slog.New(handler).With("component", cfg.Component),
		component: cfg.Component,
	}
}

// Nop returns a logger that discards everything. Tests use it.
func Nop() *Logger {
	return &Logger{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		component: ComponentApp,
	}
}

// WithComponent returns a child logger for another component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("component", component),
		component: component,
	}
}

// With returns a child logger carrying args.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		component: l.component,
	}
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}

// Err logs err at error level under the "error" key.
func (l *Logger) Err(ctx context.Context, msg string, err error, args ...any) {
	l.Logger.ErrorContext(ctx, msg, append([]any{"error", err}, args...)...)
}

// ParseLevel maps debug|info|warn|error onto slog levels, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// SetDefault installs l as the process-wide slog default.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
