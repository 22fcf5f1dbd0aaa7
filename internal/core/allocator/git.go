package allocator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/aki/twig/internal/core/worktree"
)

// WorktreeAdder is the git capability GitAllocator needs
type WorktreeAdder interface {
	AddWorktree(ctx context.Context, path, branch, base string) error
}

// GitAllocator creates worktrees directly with `git worktree add`
type GitAllocator struct {
	git     WorktreeAdder
	baseDir string
	prefix  string
	newID   func() string
}

// NewGitAllocator creates worktrees named <prefix>-<id> under baseDir
func NewGitAllocator(git WorktreeAdder, baseDir, prefix string) *GitAllocator {
	return &GitAllocator{
		git:     git,
		baseDir: baseDir,
		prefix:  prefix,
		newID: func() string {
			return uuid.New().String()[:8]
		},
	}
}

// Allocate accepts at most one argument, the base ref to start from.
func (a *GitAllocator) Allocate(ctx context.Context, args []string) (string, error) {
	if len(args) > 1 {
		return "", fmt.Errorf("%w: built-in allocator accepts at most one base ref, got %d arguments",
			worktree.ErrAllocationFailed, len(args))
	}
	base := ""
	if len(args) == 1 {
		base = args[0]
	}

	name := a.newID()
	if a.prefix != "" {
		name = a.prefix + "-" + name
	}
	if err := worktree.ValidateBranchName(name); err != nil {
		return "", fmt.Errorf("%w: %v", worktree.ErrAllocationFailed, err)
	}

	if err := os.MkdirAll(a.baseDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: failed to create worktree directory: %v", worktree.ErrAllocationFailed, err)
	}

	path := filepath.Join(a.baseDir, name)
	if err := a.git.AddWorktree(ctx, path, name, base); err != nil {
		return "", fmt.Errorf("%w: %v", worktree.ErrAllocationFailed, err)
	}
	return path, nil
}
