package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aki/twig/internal/cli/ui"
)

var excludeCmd = &cobra.Command{
	Use:   "exclude",
	Short: "Manage ignore patterns shared by every worktree",
	Long: `Manage the repository-wide exclude file (info/exclude in the common git
directory). Patterns added here apply to every worktree of the repository
without touching any tracked .gitignore.`,
}

var excludeAddCmd = &cobra.Command{
	Use:   "add <pattern>...",
	Short: "Append patterns to the shared exclude file",
	Example: `  twig exclude add .env '*.local' node_modules/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExcludeAdd,
}

var excludeListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List shared exclude patterns",
	Args:    cobra.NoArgs,
	RunE:    runExcludeList,
}

var excludeEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the shared exclude file in your editor",
	Args:  cobra.NoArgs,
	RunE:  runExcludeEdit,
}

var excludeCheckCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Report whether a path is matched by the shared patterns",
	Args:  cobra.ExactArgs(1),
	RunE:  runExcludeCheck,
}

var excludePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the location of the shared exclude file",
	Args:  cobra.NoArgs,
	RunE:  runExcludePath,
}

func init() {
	excludeCmd.AddCommand(excludeAddCmd)
	excludeCmd.AddCommand(excludeListCmd)
	excludeCmd.AddCommand(excludeEditCmd)
	excludeCmd.AddCommand(excludeCheckCmd)
	excludeCmd.AddCommand(excludePathCmd)
}

func runExcludeAdd(cmd *cobra.Command, args []string) error {
	c, err := newContainer(cmd)
	if err != nil {
		return err
	}

	result, err := c.ExcludeStore().Add(cmd.Context(), args)
	if err != nil {
		return err
	}

	if ui.GlobalFormatter.IsJSON() {
		return ui.GlobalFormatter.Output(map[string][]string{
			"added":      nonNil(result.Added),
			"duplicates": nonNil(result.Duplicates),
		})
	}

	for _, p := range result.Added {
		ui.Success("Added %s", p)
	}
	for _, p := range result.Duplicates {
		ui.Info("Already present: %s", p)
	}
	return nil
}

func runExcludeList(cmd *cobra.Command, args []string) error {
	c, err := newContainer(cmd)
	if err != nil {
		return err
	}

	patterns, err := c.ExcludeStore().List(cmd.Context())
	if err != nil {
		return err
	}

	if ui.GlobalFormatter.IsJSON() {
		return ui.GlobalFormatter.Output(nonNil(patterns))
	}
	if len(patterns) == 0 {
		ui.Info("No exclude patterns")
		return nil
	}
	for _, p := range patterns {
		ui.OutputLine("%s", p)
	}
	return nil
}

func runExcludeEdit(cmd *cobra.Command, args []string) error {
	c, err := newContainer(cmd)
	if err != nil {
		return err
	}

	editor := findEditor(c.Config.Editor)
	return c.ExcludeStore().Edit(cmd.Context(), func(path string) error {
		ui.OutputLine("Opening %s in %s...", path, editor)
		return runEditor(editor, path)
	})
}

func runExcludeCheck(cmd *cobra.Command, args []string) error {
	c, err := newContainer(cmd)
	if err != nil {
		return err
	}

	rel, isDir, err := worktreeRelative(cmd, c.Git.TopLevel, args[0])
	if err != nil {
		return err
	}

	m, err := c.ExcludeStore().Check(cmd.Context(), rel, isDir)
	if err != nil {
		return err
	}

	if ui.GlobalFormatter.IsJSON() {
		return ui.GlobalFormatter.Output(map[string]interface{}{
			"path":    rel,
			"ignored": m.Ignored,
			"pattern": m.Pattern,
		})
	}

	switch {
	case m.Ignored:
		ui.OutputLine("%s is excluded by %s", rel, m.Pattern)
	case m.Pattern != "":
		ui.OutputLine("%s is re-included by %s", rel, m.Pattern)
	default:
		ui.OutputLine("%s is not excluded", rel)
	}
	return nil
}

func runExcludePath(cmd *cobra.Command, args []string) error {
	c, err := newContainer(cmd)
	if err != nil {
		return err
	}
	path, err := c.ExcludeStore().Path(cmd.Context())
	if err != nil {
		return err
	}
	ui.OutputLine("%s", path)
	return nil
}

// worktreeRelative resolves p against the current directory and returns it
// relative to the worktree root
func worktreeRelative(cmd *cobra.Command, topLevel func(ctx context.Context) (string, error), p string) (string, bool, error) {
	root, err := topLevel(cmd.Context())
	if err != nil {
		return "", false, err
	}

	abs := p
	if !filepath.IsAbs(abs) {
		wd, err := os.Getwd()
		if err != nil {
			return "", false, err
		}
		abs = filepath.Join(wd, p)
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false, fmt.Errorf("%s is outside the worktree %s", p, root)
	}

	isDir := false
	if info, err := os.Stat(abs); err == nil {
		isDir = info.IsDir()
	}
	return filepath.ToSlash(rel), isDir, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
