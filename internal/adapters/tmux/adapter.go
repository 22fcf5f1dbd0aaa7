// Package tmux provides a tmux adapter for terminal multiplexing.
package tmux

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrNoSession is returned by operations that target a session which does not exist
var ErrNoSession = errors.New("tmux session does not exist")

// RealAdapter provides real tmux operations
type RealAdapter struct {
	tmuxPath string
}

// NewAdapter creates a new tmux adapter
func NewAdapter() (Adapter, error) {
	// Check if tmux is available
	tmuxPath, err := exec.LookPath("tmux")
	if err != nil {
		return nil, fmt.Errorf("tmux not found: %w", err)
	}

	return &RealAdapter{
		tmuxPath: tmuxPath,
	}, nil
}

// IsAvailable checks if tmux is available on the system
func (a *RealAdapter) IsAvailable() bool {
	cmd := exec.Command(a.tmuxPath, "-V")
	return cmd.Run() == nil
}

// InsideSession checks the TMUX variable tmux exports to its clients
func (a *RealAdapter) InsideSession() bool {
	return os.Getenv("TMUX") != ""
}

// CreateSession creates a new tmux session
func (a *RealAdapter) CreateSession(sessionName, workDir string) error {
	return a.CreateSessionWithOptions(CreateSessionOptions{
		SessionName: sessionName,
		WorkDir:     workDir,
	})
}

// CreateSessionWithOptions creates a new detached tmux session with custom options
func (a *RealAdapter) CreateSessionWithOptions(opts CreateSessionOptions) error {
	args := []string{"new-session", "-d", "-s", opts.SessionName, "-c", opts.WorkDir}

	if opts.WindowName != "" {
		args = append(args, "-n", opts.WindowName)
	}

	for key, value := range opts.Environment {
		args = append(args, "-e", key+"="+value)
	}

	if _, err := a.run(args...); err != nil {
		return fmt.Errorf("failed to create tmux session: %w", err)
	}

	return nil
}

// SessionExists checks if a tmux session exists
func (a *RealAdapter) SessionExists(sessionName string) bool {
	cmd := exec.Command(a.tmuxPath, "has-session", "-t", target(sessionName))
	return cmd.Run() == nil
}

// KillSession kills a tmux session
func (a *RealAdapter) KillSession(sessionName string) error {
	if !a.SessionExists(sessionName) {
		return nil // Already gone
	}

	if _, err := a.run("kill-session", "-t", target(sessionName)); err != nil {
		return fmt.Errorf("failed to kill tmux session: %w", err)
	}
	return nil
}

// SwitchClient moves the current client to the session
func (a *RealAdapter) SwitchClient(sessionName string) error {
	if _, err := a.run("switch-client", "-t", target(sessionName)); err != nil {
		return fmt.Errorf("failed to switch client: %w", err)
	}
	return nil
}

// RenameSession renames a session in place
func (a *RealAdapter) RenameSession(oldName, newName string) error {
	if !a.SessionExists(oldName) {
		return fmt.Errorf("%w: %s", ErrNoSession, oldName)
	}

	if _, err := a.run("rename-session", "-t", target(oldName), newName); err != nil {
		return fmt.Errorf("failed to rename tmux session: %w", err)
	}
	return nil
}

// ListSessions returns a list of active tmux sessions
func (a *RealAdapter) ListSessions() ([]string, error) {
	return a.list("#{session_name}")
}

// SessionID returns the id of the session named exactly sessionName
func (a *RealAdapter) SessionID(sessionName string) (string, error) {
	out, err := a.list("#{session_id} #{session_name}")
	if err != nil {
		return "", err
	}
	for _, line := range out {
		id, name, _ := strings.Cut(line, " ")
		if name == sessionName {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoSession, sessionName)
}

// ListSessionIDs returns the ids of all live sessions
func (a *RealAdapter) ListSessionIDs() ([]string, error) {
	return a.list("#{session_id}")
}

// SetGlobalHook sets one entry of a global hook array
func (a *RealAdapter) SetGlobalHook(event string, index int, command string) error {
	if _, err := a.run("set-hook", "-g", hookName(event, index), command); err != nil {
		return fmt.Errorf("failed to set %s hook: %w", event, err)
	}
	return nil
}

// UnsetGlobalHook clears one entry of a global hook array
func (a *RealAdapter) UnsetGlobalHook(event string, index int) error {
	hooks, err := a.GlobalHooks(event)
	if err != nil {
		return err
	}
	if _, ok := hooks[index]; !ok {
		return nil
	}

	if _, err := a.run("set-hook", "-gu", hookName(event, index)); err != nil {
		return fmt.Errorf("failed to unset %s hook: %w", event, err)
	}
	return nil
}

// GlobalHooks returns the entries set for event, keyed by index
func (a *RealAdapter) GlobalHooks(event string) (map[int]string, error) {
	out, err := a.run("show-hooks", "-g")
	if err != nil {
		return nil, fmt.Errorf("failed to show hooks: %w", err)
	}

	hooks := make(map[int]string)
	for _, line := range strings.Split(string(out), "\n") {
		name, index, command, ok := parseHookLine(line)
		if ok && name == event {
			hooks[index] = command
		}
	}
	return hooks, nil
}

// list runs list-sessions with format, treating "no server" as no sessions
func (a *RealAdapter) list(format string) ([]string, error) {
	cmd := exec.Command(a.tmuxPath, "list-sessions", "-F", format)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list tmux sessions: %w", err)
	}

	lines := []string{}
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (a *RealAdapter) run(args ...string) ([]byte, error) {
	cmd := exec.Command(a.tmuxPath, args...)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// target builds an exact-match session target so "eph_a" never resolves to "eph_ab"
func target(sessionName string) string {
	return "=" + sessionName
}
