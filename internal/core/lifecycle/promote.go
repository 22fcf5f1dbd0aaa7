package lifecycle

import (
	"context"
	"fmt"

	"github.com/aki/twig/internal/core/logger"
	"github.com/aki/twig/internal/core/registry"
	"github.com/aki/twig/internal/core/session"
	"github.com/aki/twig/internal/core/worktree"
)

// VCS is the subset of git operations promotion needs
type VCS interface {
	CurrentBranch(ctx context.Context) (string, error)
	BranchExists(ctx context.Context, branch string) (bool, error)
	CreateBranch(ctx context.Context, branch, start string) error
	Checkout(ctx context.Context, branch string) error
	DeleteBranch(ctx context.Context, branch string) error
	TopLevel(ctx context.Context) (string, error)
}

// PromoteResult describes a promoted worktree
type PromoteResult struct {
	Worktree       worktree.Worktree
	PreviousBranch string
	// Session is the renamed session, nil when none was bound
	Session *session.Session
	// Warnings lists recovered failures (session rename, hook removal)
	Warnings []string
}

// Promoter turns the caller's ephemeral worktree into a named one
type Promoter struct {
	vcs      VCS
	binder   *session.Binder
	registry *registry.Registry
	cleanup  *session.CleanupRegistration
	logger   logger.Logger
}

// PromoterOption configures a Promoter
type PromoterOption func(*Promoter)

// WithPromoteRegistry updates reg on promotion
func WithPromoteRegistry(reg *registry.Registry) PromoterOption {
	return func(p *Promoter) {
		p.registry = reg
	}
}

// WithPromoteLogger sets the logger
func WithPromoteLogger(l logger.Logger) PromoterOption {
	return func(p *Promoter) {
		p.logger = logger.Component(l, "promote")
	}
}

// WithCleanupRegistration also disarms an in-process registration, such as a
// process-exit cleanup armed by Create in the same process.
func WithCleanupRegistration(reg *session.CleanupRegistration) PromoterOption {
	return func(p *Promoter) {
		p.cleanup = reg
	}
}

// NewPromoter creates a promoter for the worktree vcs points at. binder may
// be nil when no multiplexer is installed.
func NewPromoter(vcs VCS, binder *session.Binder, opts ...PromoterOption) *Promoter {
	p := &Promoter{
		vcs:    vcs,
		binder: binder,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Promote creates newName at the current commit, checks it out in place,
// renames the bound session and disarms cleanup. Session and hook failures
// are recorded as warnings; branch failures abort.
func (p *Promoter) Promote(ctx context.Context, newName string) (*PromoteResult, error) {
	if err := worktree.ValidateBranchName(newName); err != nil {
		return nil, err
	}

	current, err := p.vcs.CurrentBranch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", worktree.ErrNotInWorktree, err)
	}
	top, err := p.vcs.TopLevel(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", worktree.ErrNotInWorktree, err)
	}

	if p.registry != nil {
		if named, err := p.registry.IsNamed(ctx, top); err == nil && named {
			return nil, fmt.Errorf("%w: %s", worktree.ErrAlreadyNamed, top)
		}
	}

	exists, err := p.vcs.BranchExists(ctx, newName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up branch %s: %w", newName, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", worktree.ErrBranchAlreadyExists, newName)
	}

	if err := p.vcs.CreateBranch(ctx, newName, "HEAD"); err != nil {
		return nil, fmt.Errorf("%w: %v", worktree.ErrBranchCreationFailed, err)
	}

	if err := p.vcs.Checkout(ctx, newName); err != nil {
		if delErr := p.vcs.DeleteBranch(ctx, newName); delErr != nil {
			p.logger.Warn("failed to delete branch after checkout failure", "branch", newName, "error", delErr)
		}
		return nil, fmt.Errorf("%w: %v", worktree.ErrCheckoutFailed, err)
	}

	result := &PromoteResult{
		Worktree:       worktree.Worktree{Path: top, Branch: newName, State: worktree.StateNamed},
		PreviousBranch: current,
	}
	log := p.logger.With("path", top, "from", current, "to", newName)

	p.rebind(result, log)
	p.disarm(result, log)

	if p.registry != nil {
		sessionName := ""
		if result.Session != nil {
			sessionName = result.Session.Name
		}
		if err := p.registry.Promote(ctx, top, newName, sessionName); err != nil {
			log.Warn("failed to record promotion", "error", err)
		}
	}

	return result, nil
}

func (p *Promoter) rebind(result *PromoteResult, log logger.Logger) {
	if p.binder == nil {
		return
	}

	s, err := p.binder.Lookup(p.binder.EphemeralName(result.PreviousBranch), result.Worktree.Path)
	if err != nil {
		log.Warn("no session to rename", "error", err)
		result.Warnings = append(result.Warnings, err.Error())
		return
	}
	result.Session = s

	if err := p.binder.Rename(s, p.binder.NamedName(result.Worktree.Branch)); err != nil {
		log.Warn("session rename failed", "session", s.Name, "error", err)
		result.Warnings = append(result.Warnings, err.Error())
	}
}

func (p *Promoter) disarm(result *PromoteResult, log logger.Logger) {
	if p.cleanup != nil {
		if err := p.cleanup.Disarm(); err != nil {
			log.Warn("failed to disarm cleanup", "error", err)
		}
	}

	if result.Session == nil {
		return
	}
	reg := result.Session.Cleanup
	if reg == nil {
		reg = p.binder.SessionCleanup(result.Session, "")
	}
	if err := reg.Disarm(); err != nil {
		log.Warn("failed to remove cleanup hook", "session", result.Session.Name, "error", err)
		result.Warnings = append(result.Warnings, err.Error())
	}
}
