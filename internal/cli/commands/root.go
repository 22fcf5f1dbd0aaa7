// Package commands implements the twig command tree
package commands

import (
	"github.com/spf13/cobra"

	"github.com/aki/twig/internal/cli/ui"
)

var flagFormat string

var rootCmd = &cobra.Command{
	Use:   "twig",
	Short: "Ephemeral git worktrees bound to tmux sessions",
	Long: `Twig creates throwaway git worktrees, binds each one to its own tmux session,
and lets you either discard them automatically or promote them to a named branch.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format, err := ui.ParseFormat(flagFormat)
		if err != nil {
			return err
		}
		return ui.SetGlobalFormatter(format)
	},
}

func init() {
	RegisterLoggerFlags(rootCmd)
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "pretty", "Output format (pretty, json)")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(excludeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
