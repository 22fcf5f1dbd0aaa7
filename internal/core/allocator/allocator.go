// Package allocator creates fresh disposable worktrees and reports their paths.
package allocator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/aki/twig/internal/core/logger"
	"github.com/aki/twig/internal/core/worktree"
)

// Allocator creates a new worktree from free-form arguments and returns its path
type Allocator interface {
	Allocate(ctx context.Context, args []string) (string, error)
}

// CommandAllocator runs an external command that prints the new worktree path on stdout
type CommandAllocator struct {
	command []string
	dir     string
	env     map[string]string
	stderr  io.Writer
	logger  logger.Logger
}

// NewCommandAllocator creates an allocator running command (argv form) in dir
func NewCommandAllocator(command []string, dir string) *CommandAllocator {
	return &CommandAllocator{
		command: command,
		dir:     dir,
		stderr:  os.Stderr,
		logger:  logger.Nop(),
	}
}

// WithEnv adds environment variables for the allocator process
func (a *CommandAllocator) WithEnv(env map[string]string) *CommandAllocator {
	a.env = env
	return a
}

// WithStderr sets where the allocator's diagnostics go
func (a *CommandAllocator) WithStderr(w io.Writer) *CommandAllocator {
	a.stderr = w
	return a
}

// WithLogger sets the logger
func (a *CommandAllocator) WithLogger(l logger.Logger) *CommandAllocator {
	a.logger = logger.Component(l, "allocator")
	return a
}

// Allocate runs the command with args appended. Non-zero exit or empty output
// fails with ErrAllocationFailed.
func (a *CommandAllocator) Allocate(ctx context.Context, args []string) (string, error) {
	if len(a.command) == 0 {
		return "", fmt.Errorf("%w: no allocator command configured", worktree.ErrAllocationFailed)
	}

	argv := append(append([]string{}, a.command[1:]...), args...)
	a.logger.Debug("running allocator", "command", shellescape.QuoteCommand(append([]string{a.command[0]}, argv...)))

	cmd := exec.CommandContext(ctx, a.command[0], argv...)
	cmd.Dir = a.dir
	cmd.Env = os.Environ()
	for k, v := range a.env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = a.stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s: %v", worktree.ErrAllocationFailed, a.command[0], err)
	}

	path := lastLine(stdout.String())
	if path == "" {
		return "", fmt.Errorf("%w: %s printed no path", worktree.ErrAllocationFailed, a.command[0])
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.dir, path)
	}
	return filepath.Clean(path), nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
