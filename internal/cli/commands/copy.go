package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aki/twig/internal/cli/ui"
	"github.com/aki/twig/internal/core/transfer"
)

var copyCmd = &cobra.Command{
	Use:   "copy <target-branch> [items...]",
	Short: "Copy files from this worktree into another one",
	Long: `Copy files from the current worktree into the worktree that has
<target-branch> checked out, preserving relative paths.

Without items, every modified or untracked file is copied. Items that do not
exist are reported and skipped.`,
	Example: `  # Carry uncommitted changes over to feat-login
  twig copy feat-login

  # Copy selected files and directories
  twig copy feat-login .env config/local`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCopy,
}

func runCopy(cmd *cobra.Command, args []string) error {
	c, err := newContainer(cmd)
	if err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	report, err := c.Copier().Copy(cmd.Context(), transfer.Request{
		Target:  args[0],
		Items:   args[1:],
		WorkDir: wd,
	})
	if err != nil {
		// TargetNotFoundError lists the known worktrees in its message
		return err
	}

	if ui.GlobalFormatter.IsJSON() {
		return ui.GlobalFormatter.Output(copyOutput(report))
	}
	ui.PrintCopyReport(report)
	return nil
}

type copyEntry struct {
	Item  string `json:"item"`
	Dir   bool   `json:"dir,omitempty"`
	Error string `json:"error,omitempty"`
}

func copyOutput(report *transfer.Report) map[string]interface{} {
	entries := make([]copyEntry, 0, len(report.Entries))
	for _, e := range report.Entries {
		entry := copyEntry{Item: e.Item, Dir: e.Dir}
		if e.Err != nil {
			entry.Error = e.Err.Error()
		}
		entries = append(entries, entry)
	}
	return map[string]interface{}{
		"source":  report.Root,
		"target":  report.Target,
		"entries": entries,
	}
}
