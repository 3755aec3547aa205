package adapters

import (
	"log/slog"
	"os"
)

// SlogLogger implements domain.Logger on top of log/slog with a text handler.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a logger writing to stderr. Debug messages are
// dropped unless debugEnabled is set.
func NewSlogLogger(debugEnabled bool) *SlogLogger {
	level := slog.LevelInfo
	if debugEnabled {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &SlogLogger{logger: slog.New(handler)}
}

// Info logs an info level message
func (l *SlogLogger) Info(msg string, args ...interface{}) {
	l.logger.Info(msg, args...)
}

// Error logs an error level message
func (l *SlogLogger) Error(msg string, args ...interface{}) {
	l.logger.Error(msg, args...)
}

// Debug logs a debug level message
func (l *SlogLogger) Debug(msg string, args ...interface{}) {
	l.logger.Debug(msg, args...)
}

// Warn logs a warning level message
func (l *SlogLogger) Warn(msg string, args ...interface{}) {
	l.logger.Warn(msg, args...)
}
