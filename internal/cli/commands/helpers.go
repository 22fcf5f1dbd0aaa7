package commands

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aki/twig/internal/app"
	"github.com/aki/twig/internal/cli/ui"
	"github.com/aki/twig/internal/core/session"
)

// newContainer builds the components for the repository containing the
// current directory
func newContainer(cmd *cobra.Command) (*app.Container, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return app.NewContainer(cmd.Context(), wd, app.WithLogger(CreateLogger()))
}

// printWarnings reports recovered failures without failing the command
func printWarnings(warnings []string) {
	for _, w := range warnings {
		ui.Warning("%s", w)
	}
}

// findEditor detects the editor to use in order of preference:
// 1. the configured editor
// 2. VISUAL and EDITOR environment variables
// 3. Common editors based on OS
func findEditor(configured string) string {
	if configured != "" {
		return configured
	}
	if editor := os.Getenv("VISUAL"); editor != "" {
		return editor
	}
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}

	var editors []string
	switch runtime.GOOS {
	case "darwin":
		editors = []string{"code", "subl", "vim", "nano", "vi"}
	default:
		editors = []string{"vim", "nano", "vi"}
	}
	for _, editor := range editors {
		if _, err := exec.LookPath(editor); err == nil {
			return editor
		}
	}
	return ""
}

// runEditor opens path in editor attached to the terminal. editor may carry
// arguments, as in "code -w".
func runEditor(editor, path string) error {
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return errors.New("no editor found. Please set the EDITOR environment variable")
	}
	editorCmd := exec.Command(parts[0], append(parts[1:], path)...)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor: %w", err)
	}
	return nil
}

// runSubshell opens the user's shell in dir and waits for it to exit
func runSubshell(dir string) error {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}

	shellCmd := exec.Command(shell)
	shellCmd.Dir = dir
	shellCmd.Stdin = os.Stdin
	shellCmd.Stdout = os.Stdout
	shellCmd.Stderr = os.Stderr
	shellCmd.Env = append(os.Environ(), fmt.Sprintf("%s=%s", session.EnvWorktree, dir))

	if err := shellCmd.Run(); err != nil {
		// The exit status of the last command in the shell is not ours
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return fmt.Errorf("failed to start shell: %w", err)
	}
	return nil
}
