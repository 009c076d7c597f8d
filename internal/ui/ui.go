// Package ui formats user-facing output for the setup-npmrc CLI.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

var writer io.Writer = os.Stderr

// SetWriter overrides the stderr writer (for testing). nil restores os.Stderr.
func SetWriter(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	writer = w
}

// --- Color detection ---

var stdoutColor = detectColor(os.Stdout)
var stderrColor = detectColor(os.Stderr)

func detectColor(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// SetColorEnabled overrides color detection (for testing).
func SetColorEnabled(enabled bool) {
	stdoutColor = enabled
	stderrColor = enabled
}

func ansi(code, s string) string {
	if !stdoutColor {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func ansiStderr(code, s string) string {
	if !stderrColor {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// Bold returns s wrapped in bold ANSI codes (stdout).
func Bold(s string) string { return ansi("1", s) }

// Dim returns s wrapped in dim ANSI codes (stdout).
func Dim(s string) string { return ansi("2", s) }

// Green returns s wrapped in green ANSI codes (stdout).
func Green(s string) string { return ansi("32", s) }

// OKTag returns a green "✓" for success indicators.
func OKTag() string { return Green("✓") }

// Warn prints a user-facing warning to stderr.
func Warn(msg string) {
	fmt.Fprintf(writer, "%s %s\n", ansiStderr("33", "Warning:"), msg)
}

// Error prints a user-facing error to stderr.
func Error(msg string) {
	fmt.Fprintf(writer, "%s %s\n", ansiStderr("31", "Error:"), msg)
}
