package commands

import (
	"github.com/spf13/cobra"

	"github.com/aki/twig/internal/cli/ui"
)

var promoteCmd = &cobra.Command{
	Use:   "promote <name>",
	Short: "Keep the current ephemeral worktree under a permanent branch name",
	Long: `Create branch <name> at the current commit, switch this worktree to it,
rename the bound tmux session and cancel any pending cleanup.

The previous ephemeral branch is left in place.`,
	Example: `  # Inside an ephemeral worktree
  twig promote feat-login`,
	Args: cobra.ExactArgs(1),
	RunE: runPromote,
}

type promoteOutput struct {
	Path           string   `json:"path"`
	Branch         string   `json:"branch"`
	PreviousBranch string   `json:"previousBranch"`
	Session        string   `json:"session,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

func runPromote(cmd *cobra.Command, args []string) error {
	c, err := newContainer(cmd)
	if err != nil {
		return err
	}

	result, err := c.Promoter().Promote(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := promoteOutput{
		Path:           result.Worktree.Path,
		Branch:         result.Worktree.Branch,
		PreviousBranch: result.PreviousBranch,
		Warnings:       result.Warnings,
	}
	if result.Session != nil {
		out.Session = result.Session.Name
	}

	if ui.GlobalFormatter.IsJSON() {
		return ui.GlobalFormatter.Output(out)
	}

	printWarnings(result.Warnings)
	ui.Success("Promoted %s to %s", result.PreviousBranch, result.Worktree.Branch)
	ui.PrintWorktree(result.Worktree, out.Session)
	return nil
}
