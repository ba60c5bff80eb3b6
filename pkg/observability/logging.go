package observability

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a structured logger for bidriver components
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new structured logger
func NewLogger(component string, level slog.Level) *Logger {
	return NewLoggerWithWriter(component, level, os.Stderr)
}

// NewLoggerWithWriter creates a logger writing to the given destination.
// Tests use this to capture output without touching process stderr.
func NewLoggerWithWriter(component string, level slog.Level, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(w, opts)

	logger := slog.New(handler).With(
		slog.String("component", component),
		slog.String("system", "bidriver"),
	)

	return &Logger{Logger: logger}
}

// WithBrowsingContext returns a logger with browsing-context fields
func (l *Logger) WithBrowsingContext(contextID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(
			slog.String("browsing_context", contextID),
		),
	}
}

// WithEventCategory returns a logger with the event category attached
func (l *Logger) WithEventCategory(category string) *Logger {
	return &Logger{
		Logger: l.Logger.With(
			slog.String("event_category", category),
		),
	}
}

// CommandSent logs an outgoing protocol command
func (l *Logger) CommandSent(id uint64, method string) {
	l.Debug("command sent",
		slog.Uint64("command_id", id),
		slog.String("method", method),
	)
}

// CommandFailed logs a protocol-reported command failure
func (l *Logger) CommandFailed(id uint64, method, code string) {
	l.Warn("command failed",
		slog.Uint64("command_id", id),
		slog.String("method", method),
		slog.String("error_code", code),
	)
}

// EventDropped logs an event that could not be delivered to any consumer
func (l *Logger) EventDropped(category, reason string) {
	l.Debug("event dropped",
		slog.String("event_category", category),
		slog.String("reason", reason),
	)
}

// CallbackPanicked logs a recovered panic raised inside a consumer callback
func (l *Logger) CallbackPanicked(category, registrationID string, value any) {
	l.Error("consumer callback panicked",
		slog.String("event_category", category),
		slog.String("registration_id", registrationID),
		slog.Any("panic", value),
	)
}
