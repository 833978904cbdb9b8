// FILE: internal/display/colors.go

// Package display renders tournament progress for terminals: boards,
// standings and runner events, colored when the output is a TTY.
package display

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"golang.org/x/term"
)

// Terminal color codes
const (
	Reset   = "\033[0m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
)

// Prompt returns a colored prompt string
func Prompt(text string) string {
	return Yellow + text + Yellow + " > " + Reset
}

// Enabled reports whether f should receive ANSI colors. NO_COLOR wins.
func Enabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Stdout returns a writer that understands ANSI sequences on every platform
func Stdout() io.Writer {
	return colorable.NewColorableStdout()
}
