// Package git wraps the git operations twig consumes: repository reads through go-git,
// mutations and worktree plumbing through the git CLI.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Operations provides git operations for a single worktree
type Operations struct {
	repoPath string
	gitDir   string
}

// NewOperations creates a new git operations instance rooted at any path inside a worktree
func NewOperations(repoPath string) *Operations {
	return &Operations{
		repoPath: repoPath,
	}
}

// NewOperationsForGitDir creates an instance that addresses the repository through its
// git directory. Used by cleanup actions that may run after the worktree directory is gone.
func NewOperationsForGitDir(gitDir string) *Operations {
	return &Operations{
		repoPath: filepath.Dir(gitDir),
		gitDir:   gitDir,
	}
}

// Path returns the path the operations were created for
func (o *Operations) Path() string {
	return o.repoPath
}

func (o *Operations) open() (*git.Repository, error) {
	return git.PlainOpenWithOptions(o.repoPath, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

// IsGitRepository checks if the path is inside a git repository
func (o *Operations) IsGitRepository() bool {
	_, err := o.open()
	return err == nil
}

// CurrentBranch returns the short name of the branch checked out in this worktree
func (o *Operations) CurrentBranch(ctx context.Context) (string, error) {
	repo, err := o.open()
	if err != nil {
		return "", fmt.Errorf("failed to open repository: %w", err)
	}

	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	if !ref.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached at %s", ref.Hash().String()[:7])
	}

	return ref.Name().Short(), nil
}

// BranchExists checks whether a local branch exists
func (o *Operations) BranchExists(ctx context.Context, branch string) (bool, error) {
	repo, err := o.open()
	if err != nil {
		return false, fmt.Errorf("failed to open repository: %w", err)
	}

	_, err = repo.Reference(plumbing.NewBranchReferenceName(branch), false)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to resolve branch %s: %w", branch, err)
	}
	return true, nil
}

// CreateBranch creates a new branch at start, or at HEAD when start is empty.
// It fails if the branch already exists.
func (o *Operations) CreateBranch(ctx context.Context, branch, start string) error {
	args := []string{"branch", branch}
	if start != "" {
		args = append(args, start)
	}
	if _, err := o.run(ctx, args...); err != nil {
		return fmt.Errorf("failed to create branch: %w", err)
	}
	return nil
}

// Checkout switches this worktree to branch
func (o *Operations) Checkout(ctx context.Context, branch string) error {
	if _, err := o.run(ctx, "checkout", branch, "--"); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", branch, err)
	}
	return nil
}

// DeleteBranch deletes a branch
func (o *Operations) DeleteBranch(ctx context.Context, branch string) error {
	if _, err := o.run(ctx, "branch", "-D", branch); err != nil {
		return fmt.Errorf("failed to delete branch: %w", err)
	}
	return nil
}

// AddWorktree creates a worktree at path on a new branch started from base (HEAD when empty)
func (o *Operations) AddWorktree(ctx context.Context, path, branch, base string) error {
	args := []string{"worktree", "add", "-b", branch, path}
	if base != "" {
		args = append(args, base)
	}
	if _, err := o.run(ctx, args...); err != nil {
		return fmt.Errorf("failed to create worktree: %w", err)
	}
	return nil
}

// RemoveWorktree force-removes a git worktree
func (o *Operations) RemoveWorktree(ctx context.Context, path string) error {
	if _, err := o.run(ctx, "worktree", "remove", "--force", path); err != nil {
		return fmt.Errorf("failed to remove worktree: %w", err)
	}
	return nil
}

// ForceRemoveWorktree removes the worktree and prunes stale metadata, ignoring every error.
// It is the action behind cleanup hooks, which have no caller to report to.
func (o *Operations) ForceRemoveWorktree(ctx context.Context, path string) {
	_ = o.RemoveWorktree(ctx, path)
	if _, err := os.Stat(path); err == nil {
		_ = os.RemoveAll(path)
	}
	_, _ = o.run(ctx, "worktree", "prune")
}

// CommonDir returns the absolute git directory shared by every worktree of the repository
func (o *Operations) CommonDir(ctx context.Context) (string, error) {
	out, err := o.run(ctx, "rev-parse", "--git-common-dir")
	if err != nil {
		return "", fmt.Errorf("failed to resolve common git directory: %w", err)
	}

	dir := strings.TrimSpace(string(out))
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(o.repoPath, dir)
	}
	return filepath.Clean(dir), nil
}

// TopLevel returns the root directory of the current worktree
func (o *Operations) TopLevel(ctx context.Context) (string, error) {
	out, err := o.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("failed to resolve worktree root: %w", err)
	}
	return filepath.Clean(strings.TrimSpace(string(out))), nil
}

// ListWorktrees lists all worktrees in the repository
func (o *Operations) ListWorktrees(ctx context.Context) ([]*WorktreeInfo, error) {
	out, err := o.run(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("failed to list worktrees: %w", err)
	}
	return parseWorktreeList(out), nil
}

// FindWorktree returns the worktree that has branch checked out, or nil when none does
func (o *Operations) FindWorktree(ctx context.Context, branch string) (*WorktreeInfo, error) {
	worktrees, err := o.ListWorktrees(ctx)
	if err != nil {
		return nil, err
	}
	for _, wt := range worktrees {
		if wt.Branch == branch {
			return wt, nil
		}
	}
	return nil, nil
}

// ChangedPaths returns modified, staged and untracked paths of this worktree
func (o *Operations) ChangedPaths(ctx context.Context) ([]ChangedPath, error) {
	out, err := o.run(ctx, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if err != nil {
		return nil, fmt.Errorf("failed to query status: %w", err)
	}
	return parseStatus(out), nil
}

func (o *Operations) run(ctx context.Context, args ...string) ([]byte, error) {
	if o.gitDir != "" {
		args = append([]string{"--git-dir", o.gitDir}, args...)
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	if o.gitDir == "" {
		cmd.Dir = o.repoPath
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%s", msg)
	}
	return stdout.Bytes(), nil
}

// parseWorktreeList parses the output of 'git worktree list --porcelain'
func parseWorktreeList(output []byte) []*WorktreeInfo {
	var worktrees []*WorktreeInfo
	lines := bytes.Split(output, []byte("\n"))

	var current *WorktreeInfo
	for _, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if current != nil {
				worktrees = append(worktrees, current)
				current = nil
			}
			continue
		}

		key, value, _ := strings.Cut(string(line), " ")

		switch key {
		case "worktree":
			current = &WorktreeInfo{Path: value}
		case "branch":
			if current != nil {
				current.Branch = strings.TrimPrefix(value, "refs/heads/")
			}
		case "HEAD":
			if current != nil {
				current.Commit = value
			}
		case "detached":
			if current != nil {
				current.Detached = true
			}
		case "bare":
			if current != nil {
				current.Bare = true
			}
		}
	}

	if current != nil {
		worktrees = append(worktrees, current)
	}

	return worktrees
}

// parseStatus parses 'git status --porcelain=v1 -z'. Rename and copy entries carry the
// original path as an extra NUL-terminated field, which is skipped.
func parseStatus(output []byte) []ChangedPath {
	var paths []ChangedPath
	fields := bytes.Split(output, []byte{0})

	for i := 0; i < len(fields); i++ {
		entry := string(fields[i])
		if len(entry) < 4 {
			continue
		}

		x, y := entry[0], entry[1]
		path := entry[3:]
		if x == 'R' || x == 'C' {
			i++
		}

		paths = append(paths, ChangedPath{
			Path:      path,
			Untracked: x == '?' && y == '?',
			Deleted:   (x == 'D' && y != 'A') || y == 'D',
		})
	}

	return paths
}

// ValidateWorktreePath ensures the worktree path is safe and within project bounds
func ValidateWorktreePath(basePath, requestedPath string) error {
	// Ensure the base path is absolute
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	// Resolve the requested path relative to base
	fullPath := filepath.Join(absBase, requestedPath)
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	// Ensure the path is within the base directory
	if !strings.HasPrefix(absPath, absBase+string(os.PathSeparator)) && absPath != absBase {
		return fmt.Errorf("path is outside worktree boundaries")
	}

	return nil
}
