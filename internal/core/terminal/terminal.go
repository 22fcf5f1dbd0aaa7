// Package terminal provides terminal-related utility functions
package terminal

import (
	"os"

	"github.com/charmbracelet/x/term"
)

// GetSize returns the current terminal dimensions or defaults
func GetSize() (width, height int) {
	width, height = 120, 40

	if w, h, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 && h > 0 {
		width, height = w, h
		return
	}

	if w, h, err := term.GetSize(os.Stderr.Fd()); err == nil && w > 0 && h > 0 {
		width, height = w, h
	}
	return
}

// IsInteractive reports whether stdin and stdout are both terminals, which
// is required before handing the user an interactive subshell.
func IsInteractive() bool {
	return term.IsTerminal(os.Stdin.Fd()) && term.IsTerminal(os.Stdout.Fd())
}
