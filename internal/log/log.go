// Package log wraps log/slog with the handler setup used by setup-npmrc.
// Attributes whose keys name a credential are masked before they reach any
// handler.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var logger *slog.Logger

// Options configures the logger.
type Options struct {
	// Verbose enables debug/info output to stderr
	Verbose bool
	// JSONFormat uses JSON output format for stderr
	JSONFormat bool
	// Stderr is the writer for stderr output (defaults to os.Stderr)
	Stderr io.Writer
}

// RedactedValue replaces secret attribute values in log output.
const RedactedValue = "***"

// secretKeys are attribute keys whose values are always masked.
var secretKeys = map[string]bool{
	"token":         true,
	"password":      true,
	"auth-password": true,
	"authorization": true,
}

// Init initializes the global logger with the given options.
func Init(opts Options) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	// Warn+Error by default, all levels if verbose
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactAttr,
	}

	var handler slog.Handler
	if opts.JSONFormat {
		handler = slog.NewJSONHandler(stderr, handlerOpts)
	} else {
		handler = slog.NewTextHandler(stderr, handlerOpts)
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, Redacted(a.Value.String()))
	}
	return a
}

// Redacted returns a mask for secret. Empty secrets stay empty so that
// "not set" remains distinguishable from "set" in diagnostics.
func Redacted(secret string) string {
	if secret == "" {
		return ""
	}
	return RedactedValue
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// Info logs an info message.
func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}

// With returns a logger with additional context.
func With(args ...any) *slog.Logger {
	return logger.With(args...)
}

// SetOutput sets the output writer (for testing).
func SetOutput(w io.Writer) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: redactAttr,
	})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func init() {
	// Default logger until Init is called
	logger = slog.Default()
}
