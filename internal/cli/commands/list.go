package commands

import (
	"github.com/spf13/cobra"

	"github.com/aki/twig/internal/app"
	"github.com/aki/twig/internal/cli/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List worktrees with their lifecycle state",
	Long: `List every worktree of the repository. Worktrees created by twig show
their lifecycle state (ephemeral or named) and bound session.

Records of worktrees that no longer exist on disk are dropped.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := newContainer(cmd)
	if err != nil {
		return err
	}

	rows, err := collectRows(cmd, c)
	if err != nil {
		return err
	}

	if ui.GlobalFormatter.IsJSON() {
		return ui.GlobalFormatter.Output(rows)
	}
	ui.PrintWorktreeList(rows)
	return nil
}

// collectRows converts the container listing into table rows
func collectRows(cmd *cobra.Command, c *app.Container) ([]ui.WorktreeRow, error) {
	listing, err := c.Worktrees(cmd.Context())
	if err != nil {
		return nil, err
	}

	rows := make([]ui.WorktreeRow, 0, len(listing))
	for _, l := range listing {
		row := ui.WorktreeRow{Branch: l.Branch, Path: l.Path}
		if l.Record != nil {
			row = ui.RowFromRecord(*l.Record)
			row.Branch = l.Branch
		}
		if row.Branch == "" {
			row.Branch = "(detached)"
		}
		row.Current = l.Current
		rows = append(rows, row)
	}
	return rows, nil
}
