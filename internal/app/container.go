// Package app wires the twig components for one repository
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alessio/shellescape"

	"github.com/aki/twig/internal/adapters/tmux"
	"github.com/aki/twig/internal/core/allocator"
	"github.com/aki/twig/internal/core/config"
	"github.com/aki/twig/internal/core/exclude"
	"github.com/aki/twig/internal/core/git"
	"github.com/aki/twig/internal/core/lifecycle"
	"github.com/aki/twig/internal/core/logger"
	"github.com/aki/twig/internal/core/registry"
	"github.com/aki/twig/internal/core/session"
	"github.com/aki/twig/internal/core/transfer"
)

// EnvCommonDir is exported to external allocator commands
const EnvCommonDir = "TWIG_GIT_COMMON_DIR"

// Container holds the components built for the repository containing WorkDir
type Container struct {
	// WorkDir is the directory the container was created for
	WorkDir string
	// CommonDir is the git directory shared by all worktrees
	CommonDir string
	// MainRoot is the top level of the main worktree
	MainRoot string

	Git           *git.Operations
	ConfigManager *config.Manager
	Config        *config.Config
	Registry      *registry.Registry
	// Tmux is nil when tmux is not installed
	Tmux tmux.Adapter
	// Binder is nil when tmux is not installed
	Binder *session.Binder
	Logger logger.Logger
}

// Option configures a Container
type Option func(*Container)

// WithTmux replaces tmux discovery with adapter
func WithTmux(adapter tmux.Adapter) Option {
	return func(c *Container) {
		c.Tmux = adapter
	}
}

// WithLogger sets the logger handed to every component
func WithLogger(l logger.Logger) Option {
	return func(c *Container) {
		c.Logger = l
	}
}

// NewContainer resolves the repository containing workDir and builds its components
func NewContainer(ctx context.Context, workDir string, opts ...Option) (*Container, error) {
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("invalid directory %s: %w", workDir, err)
	}

	c := &Container{
		WorkDir: abs,
		Logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Git = git.NewOperations(abs)
	if !c.Git.IsGitRepository() {
		return nil, fmt.Errorf("not a git repository: %s", abs)
	}

	c.CommonDir, err = c.Git.CommonDir(ctx)
	if err != nil {
		return nil, err
	}
	c.MainRoot = filepath.Dir(c.CommonDir)

	c.ConfigManager = config.NewManager(config.ResolvePath(c.CommonDir))
	c.Config, err = c.ConfigManager.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	c.Registry = registry.Open(c.CommonDir)

	if c.Tmux == nil {
		if adapter, err := tmux.NewAdapter(); err == nil {
			c.Tmux = adapter
		} else {
			c.Logger.Debug("tmux unavailable, sessions disabled", "error", err)
		}
	}
	if c.Tmux != nil {
		c.Binder = session.NewBinder(c.Tmux, session.Prefixes{
			Ephemeral: c.Config.Session.EphemeralPrefix,
			Named:     c.Config.Session.NamedPrefix,
		}, c.Logger)
	}

	return c, nil
}

// Allocator returns the configured allocator: the external command when one
// is set, the built-in git allocator otherwise.
func (c *Container) Allocator() allocator.Allocator {
	if len(c.Config.Allocator.Command) > 0 {
		return allocator.NewCommandAllocator(c.Config.Allocator.Command, c.WorkDir).
			WithEnv(map[string]string{EnvCommonDir: c.CommonDir}).
			WithStderr(os.Stderr).
			WithLogger(c.Logger)
	}
	return allocator.NewGitAllocator(c.Git, c.Config.WorktreeDir(c.MainRoot), c.Config.Allocator.NamePrefix)
}

// Controller returns a lifecycle controller recording into the registry
func (c *Container) Controller(opts ...lifecycle.ControllerOption) *lifecycle.Controller {
	base := []lifecycle.ControllerOption{
		lifecycle.WithRegistry(c.Registry),
		lifecycle.WithLogger(c.Logger),
		lifecycle.WithHookCommand(c.CleanupCommand),
	}
	return lifecycle.NewController(c.Allocator(), c.Binder, c.Git, append(base, opts...)...)
}

// CleanupCommand is the shell command a session-close hook runs to remove
// path. It addresses the repository by its git directory because the hook
// runs outside any worktree.
func (c *Container) CleanupCommand(path string) string {
	exe, err := os.Executable()
	if err != nil {
		exe = "twig"
	}
	return shellescape.QuoteCommand([]string{exe, "cleanup", "--git-dir", c.CommonDir, path})
}

// Promoter returns a promoter for the worktree containing WorkDir
func (c *Container) Promoter(opts ...lifecycle.PromoterOption) *lifecycle.Promoter {
	base := []lifecycle.PromoterOption{
		lifecycle.WithPromoteRegistry(c.Registry),
		lifecycle.WithPromoteLogger(c.Logger),
	}
	return lifecycle.NewPromoter(c.Git, c.Binder, append(base, opts...)...)
}

// Copier returns a cross-worktree copier for the worktree containing WorkDir
func (c *Container) Copier() *transfer.Copier {
	return transfer.NewCopier(c.Git, c.Logger)
}

// ExcludeStore returns the shared exclude file store
func (c *Container) ExcludeStore() *exclude.Store {
	return exclude.NewStore(c.Git)
}
