// Package session binds worktrees to tmux sessions and manages the cleanup
// hooks attached to them.
package session

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/aki/twig/internal/adapters/tmux"
	"github.com/aki/twig/internal/core/logger"
	"github.com/aki/twig/internal/core/worktree"
)

// EnvWorktree is exported into every session twig creates
const EnvWorktree = "TWIG_WORKTREE"

// CleanupHookBase offsets cleanup entries of the global session-closed hook
// from the low indices users set in their own configuration
const CleanupHookBase = 1000

// Session is a tmux session bound to one worktree
type Session struct {
	// ID is the tmux session id; it survives renames
	ID           string
	Name         string
	WorktreePath string
	// Cleanup is the deletion registration owned by this session, if any
	Cleanup *CleanupRegistration
}

// HasCleanupHook reports whether this session holds an armed registration
func (s *Session) HasCleanupHook() bool {
	return s != nil && s.Cleanup != nil && s.Cleanup.Armed()
}

// Prefixes distinguish ephemeral sessions from promoted ones
type Prefixes struct {
	Ephemeral string
	Named     string
}

// Binder creates, locates and renames sessions
type Binder struct {
	tmux     tmux.Adapter
	prefixes Prefixes
	logger   logger.Logger
}

// NewBinder creates a binder over adapter
func NewBinder(adapter tmux.Adapter, prefixes Prefixes, log logger.Logger) *Binder {
	return &Binder{
		tmux:     adapter,
		prefixes: prefixes,
		logger:   logger.Component(log, "session"),
	}
}

// Prefixes returns the configured session prefixes
func (b *Binder) Prefixes() Prefixes {
	return b.prefixes
}

// Active reports whether a multiplexer context is available to bind into
func (b *Binder) Active() bool {
	return b.tmux.IsAvailable() && b.tmux.InsideSession()
}

// EphemeralName returns the session name for an ephemeral worktree
func (b *Binder) EphemeralName(branch string) string {
	return worktree.SessionName(b.prefixes.Ephemeral, branch)
}

// NamedName returns the session name for a promoted worktree
func (b *Binder) NamedName(branch string) string {
	return worktree.SessionName(b.prefixes.Named, branch)
}

// Bind returns the ephemeral session for branch, creating it at path and
// switching the client to it when none exists. An existing session is
// returned unmodified; created reports which case happened.
func (b *Binder) Bind(branch, path string) (s *Session, created bool, err error) {
	name := b.EphemeralName(branch)
	if b.tmux.SessionExists(name) {
		b.logger.Debug("attaching to existing session", "session", name)
		return b.session(name, path), false, nil
	}

	err = b.tmux.CreateSessionWithOptions(tmux.CreateSessionOptions{
		SessionName: name,
		WorkDir:     path,
		Environment: map[string]string{EnvWorktree: path},
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create session %s: %w", name, err)
	}

	s = b.session(name, path)
	if b.tmux.InsideSession() {
		if err := b.tmux.SwitchClient(name); err != nil {
			b.logger.Warn("failed to switch client", "session", name, "error", err)
		}
	}
	return s, true, nil
}

// Attach switches the current client to s
func (b *Binder) Attach(s *Session) error {
	if err := b.tmux.SwitchClient(s.Name); err != nil {
		return fmt.Errorf("failed to switch to session %s: %w", s.Name, err)
	}
	return nil
}

// Lookup returns the session called name bound to path
func (b *Binder) Lookup(name, path string) (*Session, error) {
	if !b.tmux.IsAvailable() || !b.tmux.SessionExists(name) {
		return nil, fmt.Errorf("%w: %s", worktree.ErrSessionNotFound, name)
	}
	return b.session(name, path), nil
}

func (b *Binder) session(name, path string) *Session {
	s := &Session{Name: name, WorktreePath: path}
	if id, err := b.tmux.SessionID(name); err == nil {
		s.ID = id
	} else {
		b.logger.Debug("session id unavailable", "session", name, "error", err)
	}
	return s
}

// Kill terminates s. A session that is already gone is not an error.
func (b *Binder) Kill(s *Session) error {
	if !b.tmux.SessionExists(s.Name) {
		return nil
	}
	return b.tmux.KillSession(s.Name)
}

// HookCommand wraps a shell command as the tmux command a hook runs.
// run-shell expands formats, so '#' is doubled.
func HookCommand(command string) string {
	return "run-shell -b " + tmux.Quote(strings.ReplaceAll(command, "#", "##"))
}

// CleanupHook is the global session-closed entry that runs command only
// when the session with id closes
func CleanupHook(id, command string) string {
	return fmt.Sprintf("if-shell -F '#{==:#{hook_session},%s}' %s", id, tmux.Quote(HookCommand(command)))
}

// CleanupHookIndex is the global hook index reserved for the session id
func CleanupHookIndex(id string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "$"))
	if err != nil || !strings.HasPrefix(id, "$") || n < 0 {
		return 0, fmt.Errorf("invalid tmux session id %q", id)
	}
	return CleanupHookBase + n, nil
}

// InstallCleanupHook makes tmux run command when s terminates. Installing
// again replaces the previous hook. tmux only fires global session-closed
// hooks, so the entry lives in the global array at an index derived from
// the session id and tests that id before running.
func (b *Binder) InstallCleanupHook(s *Session, command string) error {
	index, err := b.hookIndex(s)
	if err != nil {
		return fmt.Errorf("failed to install cleanup hook on %s: %w", s.Name, err)
	}
	b.pruneCleanupHooks()

	if err := b.tmux.SetGlobalHook(tmux.SessionClosedEvent, index, CleanupHook(s.ID, command)); err != nil {
		return fmt.Errorf("failed to install cleanup hook on %s: %w", s.Name, err)
	}
	return nil
}

// RemoveCleanupHook drops the cleanup hook of s. Removing a hook that is
// not installed, or from a session that no longer exists, succeeds.
func (b *Binder) RemoveCleanupHook(s *Session) error {
	index, err := b.hookIndex(s)
	if err != nil {
		if errors.Is(err, worktree.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	if err := b.tmux.UnsetGlobalHook(tmux.SessionClosedEvent, index); err != nil {
		return fmt.Errorf("failed to remove cleanup hook from %s: %w", s.Name, err)
	}
	return nil
}

// HasCleanupHook asks tmux whether a cleanup hook is installed for s
func (b *Binder) HasCleanupHook(s *Session) (bool, error) {
	if !b.alive(s) {
		return false, fmt.Errorf("%w: %s", worktree.ErrSessionNotFound, s.Name)
	}
	index, err := b.hookIndex(s)
	if err != nil {
		return false, err
	}
	hooks, err := b.tmux.GlobalHooks(tmux.SessionClosedEvent)
	if err != nil {
		return false, err
	}
	_, ok := hooks[index]
	return ok, nil
}

// hookIndex resolves the id of s, looking it up by name when unknown
func (b *Binder) hookIndex(s *Session) (int, error) {
	if s.ID == "" {
		id, err := b.tmux.SessionID(s.Name)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", worktree.ErrSessionNotFound, s.Name)
		}
		s.ID = id
	}
	return CleanupHookIndex(s.ID)
}

func (b *Binder) alive(s *Session) bool {
	if s.ID == "" {
		return b.tmux.SessionExists(s.Name)
	}
	ids, err := b.tmux.ListSessionIDs()
	return err == nil && slices.Contains(ids, s.ID)
}

// pruneCleanupHooks drops entries left behind by sessions that closed.
// Session ids are never reused by a running server.
func (b *Binder) pruneCleanupHooks() {
	hooks, err := b.tmux.GlobalHooks(tmux.SessionClosedEvent)
	if err != nil {
		return
	}
	ids, err := b.tmux.ListSessionIDs()
	if err != nil {
		return
	}
	for index := range hooks {
		if index < CleanupHookBase || slices.Contains(ids, fmt.Sprintf("$%d", index-CleanupHookBase)) {
			continue
		}
		if err := b.tmux.UnsetGlobalHook(tmux.SessionClosedEvent, index); err != nil {
			b.logger.Debug("failed to prune cleanup hook", "index", index, "error", err)
		}
	}
}

// Rename renames s in place and updates s.Name. A session that no longer
// exists fails with ErrSessionNotFound.
func (b *Binder) Rename(s *Session, newName string) error {
	if s.Name == newName {
		return nil
	}
	if !b.tmux.SessionExists(s.Name) {
		return fmt.Errorf("%w: %s", worktree.ErrSessionNotFound, s.Name)
	}
	if err := b.tmux.RenameSession(s.Name, newName); err != nil {
		if errors.Is(err, tmux.ErrNoSession) {
			return fmt.Errorf("%w: %s", worktree.ErrSessionNotFound, s.Name)
		}
		return fmt.Errorf("failed to rename session %s: %w", s.Name, err)
	}
	b.logger.Debug("renamed session", "from", s.Name, "to", newName)
	s.Name = newName
	return nil
}

// SessionCleanup returns a session-close registration for s and stores it
// on s. The closures read s.Name when they run, so they follow renames.
func (b *Binder) SessionCleanup(s *Session, command string) *CleanupRegistration {
	reg := &CleanupRegistration{
		trigger: TriggerSessionClose,
		path:    s.WorktreePath,
		install: func() error { return b.InstallCleanupHook(s, command) },
		remove:  func() error { return b.RemoveCleanupHook(s) },
	}
	s.Cleanup = reg
	return reg
}
