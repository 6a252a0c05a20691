// Package color renders status markers and section headers with ANSI
// escapes, falling back to plain text when stdout is not a terminal.
package color

import (
	"fmt"
	"os"
)

const (
	escReset  = "\033[0m"
	escRed    = "\033[31m"
	escGreen  = "\033[32m"
	escYellow = "\033[33m"
	escCyan   = "\033[36m"
	escBold   = "\033[1m"
	escDim    = "\033[2m"
)

var enabled bool

func init() {
	// NO_COLOR set to anything disables color, per the usual convention.
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		return
	}
	fi, err := os.Stdout.Stat()
	if err != nil {
		return
	}
	enabled = (fi.Mode() & os.ModeCharDevice) != 0
}

// Disable turns color off, for piped or captured output.
func Disable() { enabled = false }

// Enable turns color back on.
func Enable() { enabled = true }

func wrap(esc, s string) string {
	if !enabled {
		return s
	}
	return esc + s + escReset
}

// OK marks a passed check.
func OK(msg string) string { return wrap(escGreen, "[OK] "+msg) }

// Fail marks a failed check.
func Fail(msg string) string { return wrap(escRed, "[FAIL] "+msg) }

// Warn marks a degraded but non-fatal condition.
func Warn(msg string) string { return wrap(escYellow, "[WARN] "+msg) }

// Bold emphasizes text.
func Bold(s string) string { return wrap(escBold, s) }

// Dim de-emphasizes text.
func Dim(s string) string { return wrap(escDim, s) }

// Header renders a section header.
func Header(s string) string { return wrap(escBold+escCyan, "--- "+s+" ---") }

// Okf is OK with printf formatting.
func Okf(format string, a ...any) string { return OK(fmt.Sprintf(format, a...)) }

// Failf is Fail with printf formatting.
func Failf(format string, a ...any) string { return Fail(fmt.Sprintf(format, a...)) }

// Warnf is Warn with printf formatting.
func Warnf(format string, a ...any) string { return Warn(fmt.Sprintf(format, a...)) }
