// Package lifecycle orchestrates ephemeral worktrees: creation with session
// binding and optional cleanup, and promotion to a permanent branch.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alessio/shellescape"

	"github.com/aki/twig/internal/core/allocator"
	"github.com/aki/twig/internal/core/logger"
	"github.com/aki/twig/internal/core/registry"
	"github.com/aki/twig/internal/core/session"
	"github.com/aki/twig/internal/core/worktree"
)

// Options controls Create
type Options struct {
	// Args are passed through to the allocator
	Args []string
	// AutoCleanup deletes the worktree when the creating process exits
	AutoCleanup bool
	// CleanupOnSessionClose deletes the worktree when its session closes
	CleanupOnSessionClose bool
}

// ArmsCleanup reports whether either cleanup flag is set
func (o Options) ArmsCleanup() bool {
	return o.AutoCleanup || o.CleanupOnSessionClose
}

// Result describes a created worktree
type Result struct {
	Worktree worktree.Worktree
	// Session is nil when no multiplexer context was active
	Session        *session.Session
	SessionCreated bool
	// Cleanup is nil when no deletion was armed
	Cleanup  *session.CleanupRegistration
	Warnings []string
}

// Remover deletes a worktree and ignores failures
type Remover interface {
	ForceRemoveWorktree(ctx context.Context, path string)
}

// Controller creates ephemeral worktrees
type Controller struct {
	allocator   allocator.Allocator
	binder      *session.Binder
	remover     Remover
	registry    *registry.Registry
	logger      logger.Logger
	enter       func(path string) error
	hookCommand func(path string) string
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithRegistry records created worktrees in reg
func WithRegistry(reg *registry.Registry) ControllerOption {
	return func(c *Controller) {
		c.registry = reg
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger.Component(l, "lifecycle")
	}
}

// WithEnter replaces the final "move into the worktree" step
func WithEnter(enter func(path string) error) ControllerOption {
	return func(c *Controller) {
		c.enter = enter
	}
}

// WithHookCommand sets the shell command a session-close hook runs for path
func WithHookCommand(fn func(path string) string) ControllerOption {
	return func(c *Controller) {
		c.hookCommand = fn
	}
}

// NewController creates a controller. binder may be nil when no multiplexer
// is installed.
func NewController(alloc allocator.Allocator, binder *session.Binder, remover Remover, opts ...ControllerOption) *Controller {
	c := &Controller{
		allocator: alloc,
		binder:    binder,
		remover:   remover,
		logger:    logger.Nop(),
		enter:     os.Chdir,
		hookCommand: func(path string) string {
			return shellescape.QuoteCommand([]string{"twig", "cleanup", path})
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create allocates a worktree, binds it to a session when a multiplexer is
// active, arms cleanup if requested, and finally enters the worktree.
// Allocation failures abort before any session or hook side effect.
func (c *Controller) Create(ctx context.Context, opts Options) (*Result, error) {
	path, err := c.allocator.Allocate(ctx, opts.Args)
	if err != nil {
		if errors.Is(err, worktree.ErrAllocationFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", worktree.ErrAllocationFailed, err)
	}
	if path == "" {
		return nil, fmt.Errorf("%w: allocator returned an empty path", worktree.ErrAllocationFailed)
	}

	branch, err := worktree.BranchFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("worktree %s: %w", path, err)
	}

	result := &Result{
		Worktree: worktree.Worktree{Path: path, Branch: branch, State: worktree.StateEphemeral},
	}
	log := c.logger.With("path", path, "branch", branch)

	if c.binder != nil && c.binder.Active() {
		s, created, err := c.binder.Bind(branch, path)
		if err != nil {
			log.Warn("session binding failed", "error", err)
			result.Warnings = append(result.Warnings, err.Error())
		} else {
			result.Session = s
			result.SessionCreated = created
		}
	}

	if opts.ArmsCleanup() {
		result.Cleanup = c.armCleanup(result, log)
	}

	c.record(ctx, result, log)

	if err := c.enter(path); err != nil {
		return result, fmt.Errorf("failed to enter worktree %s: %w", path, err)
	}
	return result, nil
}

func (c *Controller) armCleanup(result *Result, log logger.Logger) *session.CleanupRegistration {
	path := result.Worktree.Path

	if result.Session != nil {
		reg := c.binder.SessionCleanup(result.Session, c.hookCommand(path))
		if err := reg.Arm(); err != nil {
			// hook failures are not reported to the user
			log.Warn("failed to install cleanup hook", "session", result.Session.Name, "error", err)
			return nil
		}
		log.Debug("cleanup hook installed", "session", result.Session.Name)
		return reg
	}

	// The process-exit action belongs to runs without a multiplexer. Inside
	// tmux the shell outlives this process, so a failed bind arms nothing.
	if c.binder != nil && c.binder.Active() {
		log.Warn("cleanup not armed: worktree has no session")
		result.Warnings = append(result.Warnings, "cleanup not armed: worktree has no session")
		return nil
	}

	reg := session.NewProcessExitCleanup(path, func() { c.removeOnExit(path) })
	_ = reg.Arm()
	log.Debug("process-exit cleanup armed")
	return reg
}

// removeOnExit is the process-exit cleanup action. A worktree promoted in
// the meantime (possibly by another process) is kept.
func (c *Controller) removeOnExit(path string) {
	ctx := context.Background()
	if c.registry != nil {
		named, err := c.registry.IsNamed(ctx, path)
		if err == nil && named {
			c.logger.Debug("skipping cleanup of named worktree", "path", path)
			return
		}
	}
	c.remover.ForceRemoveWorktree(ctx, path)
	if c.registry != nil {
		_ = c.registry.Remove(ctx, path)
	}
}

func (c *Controller) record(ctx context.Context, result *Result, log logger.Logger) {
	if c.registry == nil {
		return
	}
	rec := registry.Record{
		Path:   result.Worktree.Path,
		Branch: result.Worktree.Branch,
		State:  worktree.StateEphemeral,
	}
	if result.Session != nil {
		rec.Session = result.Session.Name
	}
	if err := c.registry.Put(ctx, rec); err != nil {
		log.Warn("failed to record worktree", "error", err)
	}
}
