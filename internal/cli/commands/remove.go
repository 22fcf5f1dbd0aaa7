package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aki/twig/internal/app"
	"github.com/aki/twig/internal/cli/ui"
	"github.com/aki/twig/internal/core/session"
	"github.com/aki/twig/internal/core/worktree"
)

var removeCmd = &cobra.Command{
	Use:     "remove <branch-or-path>",
	Aliases: []string{"rm"},
	Short:   "Remove a worktree and its session",
	Long: `Force-remove a worktree, discarding uncommitted changes, and kill the
tmux session bound to it. The branch itself is kept unless --delete-branch
is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

var removeDeleteBranch bool

func init() {
	removeCmd.Flags().BoolVarP(&removeDeleteBranch, "delete-branch", "D", false, "Also delete the worktree's branch")
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := newContainer(cmd)
	if err != nil {
		return err
	}

	path, branch, err := resolveWorktree(cmd, c, args[0])
	if err != nil {
		return err
	}
	if path == c.MainRoot {
		return fmt.Errorf("refusing to remove the main worktree %s", path)
	}
	if current, err := c.Git.TopLevel(ctx); err == nil && current == path {
		return fmt.Errorf("cannot remove the worktree you are in: %s", path)
	}

	rec, _, err := c.Registry.Get(ctx, path)
	if err != nil {
		c.Logger.Warn("failed to read worktree registry", "error", err)
	}
	killSession(c, rec.Session, branch, path)

	c.Git.ForceRemoveWorktree(ctx, path)
	if err := c.Registry.Remove(ctx, path); err != nil {
		c.Logger.Warn("failed to drop worktree record", "path", path, "error", err)
	}

	if removeDeleteBranch && branch != "" {
		if err := c.Git.DeleteBranch(ctx, branch); err != nil {
			ui.Warning("Failed to delete branch %s: %v", branch, err)
		}
	}

	if ui.GlobalFormatter.IsJSON() {
		return ui.GlobalFormatter.Output(map[string]string{"path": path, "branch": branch})
	}
	ui.Success("Removed worktree %s", path)
	return nil
}

// resolveWorktree accepts an existing worktree directory or a branch name
func resolveWorktree(cmd *cobra.Command, c *app.Container, arg string) (path, branch string, err error) {
	worktrees, err := c.Git.ListWorktrees(cmd.Context())
	if err != nil {
		return "", "", err
	}

	if abs, err := filepath.Abs(arg); err == nil {
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		if _, statErr := os.Stat(abs); statErr == nil {
			for _, wt := range worktrees {
				if wt.Path == abs {
					return wt.Path, wt.Branch, nil
				}
			}
		}
	}

	known := make([]string, 0, len(worktrees))
	for _, wt := range worktrees {
		if wt.Branch == arg {
			return wt.Path, wt.Branch, nil
		}
		if wt.Branch != "" {
			known = append(known, wt.Branch)
		}
	}
	return "", "", &worktree.TargetNotFoundError{Branch: arg, Known: known}
}

// killSession terminates whichever session is bound to the worktree, after
// dropping its cleanup hook so the hook does not race this removal
func killSession(c *app.Container, recorded, branch, path string) {
	if c.Binder == nil {
		return
	}

	candidates := []string{recorded}
	if branch != "" {
		candidates = append(candidates, c.Binder.EphemeralName(branch), c.Binder.NamedName(branch))
	}
	for _, name := range candidates {
		if name == "" {
			continue
		}
		s, err := c.Binder.Lookup(name, path)
		if err != nil {
			continue
		}
		killBound(c, s)
		return
	}
}

func killBound(c *app.Container, s *session.Session) {
	if err := c.Binder.RemoveCleanupHook(s); err != nil {
		c.Logger.Warn("failed to remove cleanup hook", "session", s.Name, "error", err)
	}
	if err := c.Binder.Kill(s); err != nil {
		ui.Warning("Failed to kill session %s: %v", s.Name, err)
	}
}
