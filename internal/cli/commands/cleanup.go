package commands

import (
	"github.com/spf13/cobra"

	"github.com/aki/twig/internal/core/git"
	"github.com/aki/twig/internal/core/registry"
)

var cleanupCmd = &cobra.Command{
	Use:    "cleanup <path>",
	Short:  "Remove an ephemeral worktree (run by session-close hooks)",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	// Hooks have nobody to report to: every failure is logged and the
	// command exits 0.
	RunE: runCleanup,
}

var cleanupGitDir string

func init() {
	cleanupCmd.Flags().StringVar(&cleanupGitDir, "git-dir", "", "Common git directory of the repository")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]
	log := CreateLogger().With("component", "cleanup", "path", path)

	commonDir := cleanupGitDir
	ops := git.NewOperationsForGitDir(commonDir)
	if commonDir == "" {
		ops = git.NewOperations(path)
		dir, err := ops.CommonDir(ctx)
		if err != nil {
			log.Warn("cannot resolve repository", "error", err)
			return nil
		}
		commonDir = dir
	}

	reg := registry.Open(commonDir)
	named, err := reg.IsNamed(ctx, path)
	if err != nil {
		log.Warn("failed to read worktree registry", "error", err)
	}
	if named {
		log.Debug("worktree was promoted, keeping it")
		return nil
	}

	ops.ForceRemoveWorktree(ctx, path)
	if err := reg.Remove(ctx, path); err != nil {
		log.Warn("failed to drop worktree record", "error", err)
	}
	log.Debug("worktree removed")
	return nil
}
