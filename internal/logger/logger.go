// Package logger owns the process-wide slog.Logger used by the exporter.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	globalMutex  sync.RWMutex
	globalLogger *slog.Logger
)

// L returns the configured slog.Logger. Before Configure/Set it returns a text
// logger at INFO level on stdout.
func L() *slog.Logger {
	globalMutex.RLock()
	current := globalLogger
	globalMutex.RUnlock()

	if current != nil {
		return current
	}

	globalMutex.Lock()
	defer globalMutex.Unlock()

	if globalLogger == nil {
		globalLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	return globalLogger
}

// Set replaces the global logger (primarily for tests or custom wiring).
func Set(newLogger *slog.Logger) {
	globalMutex.Lock()
	globalLogger = newLogger
	globalMutex.Unlock()
}

// Configure builds and installs a stdout logger from the configured format,
// level and time switch.
func Configure(format, level string, includeTime bool) *slog.Logger {
	return ConfigureWriter(os.Stdout, format, level, includeTime)
}

// ConfigureWriter is Configure with an explicit destination.
// format: "json", "text" or "plain" (unknown -> text).
// level:  "debug", "info", "warn", "error" ("fatal"/"panic" -> error).
func ConfigureWriter(output io.Writer, format, level string, includeTime bool) *slog.Logger {
	logLevel := ParseLevel(level)

	var handler slog.Handler

	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(output, &slog.HandlerOptions{
			Level:       logLevel,
			ReplaceAttr: timeStripper(includeTime),
		})
	case "plain":
		handler = newPlainTextHandler(output, logLevel, includeTime)
	default:
		handler = slog.NewTextHandler(output, &slog.HandlerOptions{
			Level:       logLevel,
			ReplaceAttr: timeStripper(includeTime),
		})
	}

	configured := slog.New(handler)
	Set(configured)

	return configured
}

// ValidFormat reports whether format names a supported handler.
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case "json", "text", "plain":
		return true
	default:
		return false
	}
}

// ValidLevel reports whether level is one ParseLevel understands.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error", "fatal", "panic":
		return true
	default:
		return false
	}
}

func timeStripper(includeTime bool) func([]string, slog.Attr) slog.Attr {
	if includeTime {
		return nil
	}

	return func(_ []string, attr slog.Attr) slog.Attr {
		if attr.Key == slog.TimeKey {
			return slog.Attr{}
		}

		return attr
	}
}

// ParseLevel converts a string level to slog.Level. Unknown inputs map to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal", "panic":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
