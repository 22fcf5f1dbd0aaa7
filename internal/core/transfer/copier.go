// Package transfer copies files from the current worktree into another
// worktree of the same repository.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"

	"github.com/aki/twig/internal/core/git"
	"github.com/aki/twig/internal/core/logger"
	"github.com/aki/twig/internal/core/worktree"
)

// Source is the git view of the current worktree the copier needs
type Source interface {
	TopLevel(ctx context.Context) (string, error)
	ListWorktrees(ctx context.Context) ([]*git.WorktreeInfo, error)
	ChangedPaths(ctx context.Context) ([]git.ChangedPath, error)
}

// Entry is one (source, destination) pair of the copy manifest and its outcome
type Entry struct {
	// Item is the path as requested, or the status path for implicit copies
	Item        string
	Source      string
	Destination string
	Dir         bool
	Err         error
}

// Report is the per-item outcome of a copy
type Report struct {
	Root    string
	Target  string
	Entries []Entry
}

// Copied returns the entries that were copied
func (r *Report) Copied() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Err == nil {
			out = append(out, e)
		}
	}
	return out
}

// Failed returns the entries that were skipped or failed
func (r *Report) Failed() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Err != nil {
			out = append(out, e)
		}
	}
	return out
}

// Request describes a copy
type Request struct {
	// Target is the branch whose worktree receives the files
	Target string
	// Items are files or directories; empty copies modified and untracked files
	Items []string
	// WorkDir resolves relative items; defaults to the worktree root
	WorkDir string
}

// Copier transfers files between worktrees
type Copier struct {
	src    Source
	logger logger.Logger
}

// NewCopier creates a copier reading from src
func NewCopier(src Source, log logger.Logger) *Copier {
	return &Copier{
		src:    src,
		logger: logger.Component(log, "copy"),
	}
}

// Copy builds the manifest for req and copies each entry. Per-entry failures
// are recorded in the report and do not stop the remaining entries.
func (c *Copier) Copy(ctx context.Context, req Request) (*Report, error) {
	root, err := c.src.TopLevel(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", worktree.ErrNotInWorktree, err)
	}

	target, err := c.resolveTarget(ctx, req.Target)
	if err != nil {
		return nil, err
	}
	if samePath(target, root) {
		return nil, fmt.Errorf("target %q is the current worktree", req.Target)
	}

	report := &Report{Root: root, Target: target}

	if len(req.Items) == 0 {
		report.Entries, err = c.changedManifest(ctx, root, target)
		if err != nil {
			return nil, err
		}
	} else {
		workDir := req.WorkDir
		if workDir == "" {
			workDir = root
		}
		report.Entries = explicitManifest(root, target, workDir, req.Items)
	}

	for i := range report.Entries {
		e := &report.Entries[i]
		if e.Err != nil {
			c.logger.Warn("skipping item", "item", e.Item, "error", e.Err)
			continue
		}
		if err := copyEntry(e); err != nil {
			e.Err = &worktree.ItemError{Item: e.Item, Err: err}
			c.logger.Warn("copy failed", "item", e.Item, "error", err)
		}
	}
	return report, nil
}

func (c *Copier) resolveTarget(ctx context.Context, branch string) (string, error) {
	worktrees, err := c.src.ListWorktrees(ctx)
	if err != nil {
		return "", err
	}

	known := make([]string, 0, len(worktrees))
	for _, wt := range worktrees {
		if wt.Bare {
			continue
		}
		if wt.Branch == branch {
			return wt.Path, nil
		}
		if wt.Branch != "" {
			known = append(known, wt.Branch)
		} else {
			known = append(known, wt.Path)
		}
	}
	return "", &worktree.TargetNotFoundError{Branch: branch, Known: known}
}

func (c *Copier) changedManifest(ctx context.Context, root, target string) ([]Entry, error) {
	changed, err := c.src.ChangedPaths(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(changed))
	for _, p := range changed {
		if p.Deleted {
			continue
		}
		rel := filepath.FromSlash(p.Path)
		entries = append(entries, Entry{
			Item:        p.Path,
			Source:      filepath.Join(root, rel),
			Destination: filepath.Join(target, rel),
		})
	}
	return entries, nil
}

func explicitManifest(root, target, workDir string, items []string) []Entry {
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		e := Entry{Item: item}

		rel, err := relativeToRoot(root, workDir, item)
		if err != nil {
			e.Err = &worktree.ItemError{Item: item, Err: err}
			entries = append(entries, e)
			continue
		}

		e.Source = filepath.Join(root, rel)
		e.Destination = filepath.Join(target, rel)

		info, err := os.Lstat(e.Source)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				err = worktree.ErrItemNotFound
			}
			e.Err = &worktree.ItemError{Item: item, Err: err}
		} else {
			e.Dir = info.IsDir()
		}
		entries = append(entries, e)
	}
	return entries
}

func relativeToRoot(root, workDir, item string) (string, error) {
	abs := item
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(workDir, item)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		// cwd may be reached through a symlink
		if resolved, rerr := filepath.EvalSymlinks(filepath.Dir(abs)); rerr == nil {
			rel, err = filepath.Rel(root, filepath.Join(resolved, filepath.Base(abs)))
		}
	}
	if err != nil {
		return "", err
	}
	if err := git.ValidateWorktreePath(root, rel); err != nil {
		return "", err
	}
	if rel == "." {
		return "", fmt.Errorf("refusing to copy the worktree root")
	}
	if first := strings.Split(filepath.ToSlash(rel), "/")[0]; first == ".git" {
		return "", fmt.Errorf("refusing to copy git metadata")
	}
	return rel, nil
}

func copyEntry(e *Entry) error {
	if err := os.MkdirAll(filepath.Dir(e.Destination), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	return copy.Copy(e.Source, e.Destination, copy.Options{
		OnSymlink: func(string) copy.SymlinkAction {
			return copy.Shallow
		},
		Skip: func(_ os.FileInfo, src, _ string) (bool, error) {
			return filepath.Base(src) == ".git", nil
		},
		PreserveTimes: true,
	})
}

func samePath(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	return errA == nil && errB == nil && ra == rb
}
