package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// SetupLogger configures the structured logger every tool writes diagnostic
// output through. Valid levels are DEBUG, INFO, WARN, ERROR; verboseMode
// overrides the level to DEBUG.
func SetupLogger(verboseMode bool, logLevel string) *slog.Logger {
	return SetupLoggerTo(os.Stderr, verboseMode, logLevel)
}

// SetupLoggerTo is SetupLogger with an explicit destination. Tests use it to
// capture output; production code writes to stderr so exports on stdout stay
// clean.
func SetupLoggerTo(w io.Writer, verboseMode bool, logLevel string) *slog.Logger {
	level := ParseLogLevel(logLevel)
	if verboseMode {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// ParseLogLevel converts a string log level to slog.Level.
// Defaults to INFO if an invalid level is provided.
func ParseLogLevel(levelStr string) slog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogDebug logs a debug message if the logger is configured.
func LogDebug(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Debug(msg, args...)
	}
}

// LogInfo logs an informational message if the logger is configured.
func LogInfo(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Info(msg, args...)
	}
}

// LogWarn logs a warning message if the logger is configured.
func LogWarn(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

// LogError logs an error message if the logger is configured.
func LogError(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Error(msg, args...)
	}
}
