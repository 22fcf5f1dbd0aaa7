package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aki/twig/internal/cli/ui"
	"github.com/aki/twig/internal/core/config"
	"github.com/aki/twig/internal/core/git"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage twig configuration",
	Long: `Manage the twig configuration shared by every worktree of the repository.

The file lives in the common git directory (twig/config.yaml) unless
TWIG_CONFIG points elsewhere.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration in your editor",
	Long:  "Launch your editor on the configuration file. The configuration is validated after editing.",
	Example: `  # Edit configuration using $EDITOR
  twig config edit

  # Edit with a specific editor
  EDITOR=nano twig config edit`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing configuration")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)
}

// configManager locates the configuration without loading it, so that a
// broken file can still be repaired
func configManager(cmd *cobra.Command) (*config.Manager, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	commonDir, err := git.NewOperations(wd).CommonDir(cmd.Context())
	if err != nil {
		return nil, err
	}
	return config.NewManager(config.ResolvePath(commonDir)), nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	mgr, err := configManager(cmd)
	if err != nil {
		return err
	}
	cfg, err := mgr.Load()
	if err != nil {
		return err
	}

	if ui.GlobalFormatter.IsJSON() {
		return ui.GlobalFormatter.Output(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}
	if !mgr.Exists() {
		ui.Info("No configuration file at %s, showing defaults", mgr.GetConfigPath())
	}
	ui.OutputLine("%s", string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	mgr, err := configManager(cmd)
	if err != nil {
		return err
	}
	if mgr.Exists() && !configInitForce {
		return fmt.Errorf("configuration already exists at %s (use --force to overwrite)", mgr.GetConfigPath())
	}
	if err := mgr.Save(config.DefaultConfig()); err != nil {
		return err
	}
	ui.Success("Wrote default configuration to %s", mgr.GetConfigPath())
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	mgr, err := configManager(cmd)
	if err != nil {
		return err
	}

	if !mgr.Exists() {
		ui.OutputLine("Configuration file not found. Creating default configuration...")
		if err := mgr.Save(config.DefaultConfig()); err != nil {
			return fmt.Errorf("failed to create default configuration: %w", err)
		}
	}

	// A broken file must not prevent editing it
	configured := ""
	if cfg, err := mgr.Load(); err == nil {
		configured = cfg.Editor
	}
	editor := findEditor(configured)
	ui.OutputLine("Opening configuration in %s...", editor)
	if err := runEditor(editor, mgr.GetConfigPath()); err != nil {
		return err
	}

	ui.OutputLine("Validating configuration...")
	if _, err := mgr.Load(); err != nil {
		ui.Error("Configuration validation failed: %v", err)
		ui.OutputLine("Please fix the errors and try again.")
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	ui.Success("Configuration is valid!")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	mgr, err := configManager(cmd)
	if err != nil {
		return err
	}
	ui.OutputLine("%s", mgr.GetConfigPath())
	return nil
}
