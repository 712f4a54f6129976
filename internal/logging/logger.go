// Package logging initializes the application-wide structured logger and
// provides helpers for attaching common fields.
package logging

import (
	"log/slog"
	"os"
)

// Init configures the default slog logger with the specified level and format.
// level: "debug", "info", "warn", "error" (defaults to "info")
// format: "json" or "text" (defaults to "text")
func Init(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// WithClient returns a logger carrying the client_id and remote_addr fields.
func WithClient(logger *slog.Logger, clientID, addr string) *slog.Logger {
	return logger.With("client_id", clientID, "remote_addr", addr)
}

// WithError returns a logger with an error field.
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err)
}
