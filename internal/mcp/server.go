// Package mcp exposes the twig lifecycle operations as Model Context Protocol tools
package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aki/twig/internal/app"
	"github.com/aki/twig/internal/core/logger"
	"github.com/aki/twig/internal/core/session"
)

// Server implements the MCP server using mcp-go
type Server struct {
	mcpServer     *server.MCPServer
	root          string
	containerOpts []app.Option
	logger        logger.Logger

	mu sync.Mutex
	// pending holds process-exit cleanups armed by worktree_create, keyed by path
	pending map[string]*session.CleanupRegistration
}

// Option configures a Server
type Option func(*Server)

// WithContainerOptions is applied to every container the server builds
func WithContainerOptions(opts ...app.Option) Option {
	return func(s *Server) {
		s.containerOpts = append(s.containerOpts, opts...)
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.logger = logger.Component(l, "mcp")
	}
}

// NewServer creates a server whose tools default to the repository containing root
func NewServer(ctx context.Context, root, version string, opts ...Option) (*Server, error) {
	s := &Server{
		root:    root,
		logger:  logger.Nop(),
		pending: make(map[string]*session.CleanupRegistration),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Fail early when root is not inside a repository
	if _, err := s.container(ctx, root); err != nil {
		return nil, err
	}

	s.mcpServer = server.NewMCPServer(
		"twig",
		version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)
	s.registerTools()
	return s, nil
}

// Start serves MCP over stdin/stdout until the client disconnects or the
// process is signalled. Pending process-exit cleanups fire on return.
func (s *Server) Start() error {
	defer s.Close()
	return server.ServeStdio(s.mcpServer)
}

// Close fires every process-exit cleanup still armed
func (s *Server) Close() {
	s.mu.Lock()
	pending := s.pending
	s.pending = make(map[string]*session.CleanupRegistration)
	s.mu.Unlock()

	for path, reg := range pending {
		if reg.Fire() {
			s.logger.Info("removed ephemeral worktree on exit", "path", path)
		}
	}
}

func (s *Server) container(ctx context.Context, dir string) (*app.Container, error) {
	if dir == "" {
		dir = s.root
	}
	opts := append([]app.Option{app.WithLogger(s.logger)}, s.containerOpts...)
	c, err := app.NewContainer(ctx, dir, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", dir, err)
	}
	return c, nil
}

func (s *Server) trackCleanup(reg *session.CleanupRegistration) {
	if reg == nil || reg.Trigger() != session.TriggerProcessExit {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[reg.Path()] = reg
}

// takeCleanup removes and returns the pending cleanup for path
func (s *Server) takeCleanup(path string) *session.CleanupRegistration {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg := s.pending[path]
	delete(s.pending, path)
	return reg
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("worktree_create",
		mcp.WithDescription(GetEnhancedDescription("worktree_create")),
		mcp.WithString("repository",
			mcp.Description("Directory inside the repository (optional, defaults to the server root)"),
		),
		mcp.WithString("base",
			mcp.Description("Ref to start from (optional, built-in allocator only)"),
		),
		mcp.WithBoolean("cleanup_on_close",
			mcp.Description("Delete the worktree when its tmux session closes"),
		),
		mcp.WithBoolean("auto_cleanup",
			mcp.Description("Delete the worktree when this server exits"),
		),
	), s.handleWorktreeCreate)

	s.mcpServer.AddTool(mcp.NewTool("worktree_promote",
		mcp.WithDescription(GetEnhancedDescription("worktree_promote")),
		mcp.WithString("path",
			mcp.Description("Path of the ephemeral worktree"),
			mcp.Required(),
		),
		mcp.WithString("name",
			mcp.Description("Permanent branch name"),
			mcp.Required(),
		),
	), s.handleWorktreePromote)

	s.mcpServer.AddTool(mcp.NewTool("worktree_copy",
		mcp.WithDescription(GetEnhancedDescription("worktree_copy")),
		mcp.WithString("path",
			mcp.Description("Worktree to copy from"),
			mcp.Required(),
		),
		mcp.WithString("target",
			mcp.Description("Branch whose worktree receives the files"),
			mcp.Required(),
		),
		mcp.WithString("items",
			mcp.Description("Comma or newline separated files and directories, relative to path (optional, defaults to changed files)"),
		),
	), s.handleWorktreeCopy)

	s.mcpServer.AddTool(mcp.NewTool("worktree_list",
		mcp.WithDescription(GetEnhancedDescription("worktree_list")),
		mcp.WithString("repository",
			mcp.Description("Directory inside the repository (optional)"),
		),
	), s.handleWorktreeList)

	s.mcpServer.AddTool(mcp.NewTool("exclude_add",
		mcp.WithDescription(GetEnhancedDescription("exclude_add")),
		mcp.WithString("patterns",
			mcp.Description("Comma or newline separated ignore patterns"),
			mcp.Required(),
		),
		mcp.WithString("repository",
			mcp.Description("Directory inside the repository (optional)"),
		),
	), s.handleExcludeAdd)

	s.mcpServer.AddTool(mcp.NewTool("exclude_list",
		mcp.WithDescription(GetEnhancedDescription("exclude_list")),
		mcp.WithString("repository",
			mcp.Description("Directory inside the repository (optional)"),
		),
	), s.handleExcludeList)
}
