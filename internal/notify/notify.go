// Package notify is the fire-and-forget user feedback channel. Every
// processed command reports its outcome here; delivery must never block or
// fail the processing pipeline.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// Severity classifies a notification for display styling.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier delivers per-command feedback to the seller. Implementations
// must not block the caller.
type Notifier interface {
	Notify(ctx context.Context, message string, severity Severity, duration time.Duration)
}

// Log is a [Notifier] that writes notifications to a structured logger.
// Useful on headless devices and as the default sink in tests.
type Log struct {
	logger *slog.Logger
}

var _ Notifier = (*Log)(nil)

// NewLog returns a logger-backed notifier. A nil logger uses slog.Default.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Notify implements [Notifier].
func (l *Log) Notify(ctx context.Context, message string, severity Severity, duration time.Duration) {
	level := slog.LevelInfo
	switch severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}
	l.logger.Log(ctx, level, "notification",
		slog.String("message", message),
		slog.String("severity", string(severity)),
		slog.Duration("display_for", duration),
	)
}

// Func adapts a function to the [Notifier] interface.
type Func func(ctx context.Context, message string, severity Severity, duration time.Duration)

var _ Notifier = (Func)(nil)

// Notify implements [Notifier].
func (f Func) Notify(ctx context.Context, message string, severity Severity, duration time.Duration) {
	f(ctx, message, severity, duration)
}
