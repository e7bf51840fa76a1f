// Package logging configures the application's slog loggers: a structured
// JSON logger for machine consumption and a human-readable text logger for
// the terminal, plus rotated per-service file loggers.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

var structuredLogger *slog.Logger
var humanReadableLogger *slog.Logger

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

// Add trace and fatal level names.
var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

func replaceLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		levelLabel, exists := levelNames[level]
		if !exists {
			levelLabel = level.String()
		}
		a.Value = slog.StringValue(levelLabel)
	}
	return a
}

// Init initializes the logging system with structured and human-readable
// loggers. JSON goes to stdout, text to stderr.
func Init() {
	structuredLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: replaceLevelNames,
	}))

	humanReadableLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		ReplaceAttr: replaceLevelNames,
	}))

	slog.SetDefault(structuredLogger)
}

// SetLevel sets the minimum logging level for both loggers by
// re-initializing their handlers.
func SetLevel(level slog.Level) {
	structuredLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	}))
	humanReadableLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	}))
	slog.SetDefault(structuredLogger)
}

// Structured returns the globally configured structured (JSON) logger.
// Returns nil if Init() has not been called.
func Structured() *slog.Logger {
	return structuredLogger
}

// HumanReadable returns the globally configured human-readable (Text) logger.
// Returns nil if Init() has not been called.
func HumanReadable() *slog.Logger {
	return humanReadableLogger
}

// ForService creates a new logger instance with the 'service' attribute
// added, based on the global structured logger. Returns nil if Init() has
// not been called.
func ForService(serviceName string) *slog.Logger {
	if structuredLogger == nil {
		return nil
	}
	return structuredLogger.With("service", serviceName)
}

// --- Convenience functions using the default logger ---

// Debug logs a debug message using the default slog logger.
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// Info logs an info message using the default slog logger.
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Warn logs a warning message using the default slog logger.
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Error logs an error message using the default slog logger.
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// Fatal logs a message at the custom Fatal level and exits.
func Fatal(msg string, args ...any) {
	slog.Log(context.TODO(), LevelFatal, msg, args...)
	os.Exit(1)
}

// Trace logs a message at the custom Trace level.
func Trace(msg string, args ...any) {
	slog.Log(context.TODO(), LevelTrace, msg, args...)
}

// NewFileLogger creates a slog.Logger writing JSON logs to filePath with
// lumberjack rotation, tagged with a 'service' attribute. It returns the
// logger, a close function for the underlying writer, and an error if setup
// fails.
func NewFileLogger(filePath, serviceName string, level slog.Level) (*slog.Logger, func() error, error) {
	// lumberjack doesn't create directories
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	logWriter := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}

	fileHandler := slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	})

	logger := slog.New(fileHandler).With("service", serviceName)
	return logger, logWriter.Close, nil
}
