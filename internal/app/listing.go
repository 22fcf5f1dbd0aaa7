package app

import (
	"context"
	"os"

	"github.com/aki/twig/internal/core/registry"
)

// Listing is a worktree known to git, with its lifecycle record when twig created it
type Listing struct {
	Path   string
	Branch string
	// Record is nil for worktrees twig does not manage
	Record  *registry.Record
	Current bool
}

// Worktrees lists the repository's worktrees and drops records whose
// directory no longer exists. Registry failures are logged and the git view
// is still returned.
func (c *Container) Worktrees(ctx context.Context) ([]Listing, error) {
	worktrees, err := c.Git.ListWorktrees(ctx)
	if err != nil {
		return nil, err
	}

	if removed, err := c.Registry.Reconcile(ctx, dirExists); err != nil {
		c.Logger.Warn("failed to reconcile worktree registry", "error", err)
	} else if len(removed) > 0 {
		c.Logger.Debug("dropped records of vanished worktrees", "count", len(removed))
	}
	records, err := c.Registry.List(ctx)
	if err != nil {
		c.Logger.Warn("failed to read worktree registry", "error", err)
	}
	byPath := make(map[string]registry.Record, len(records))
	for _, rec := range records {
		byPath[rec.Path] = rec
	}

	current, _ := c.Git.TopLevel(ctx)

	var out []Listing
	for _, wt := range worktrees {
		if wt.Bare {
			continue
		}
		l := Listing{Path: wt.Path, Branch: wt.Branch, Current: wt.Path == current}
		if rec, ok := byPath[wt.Path]; ok {
			l.Record = &rec
		}
		out = append(out, l)
	}
	return out, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
