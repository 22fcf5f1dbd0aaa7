package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aki/twig/internal/app"
	"github.com/aki/twig/internal/cli/ui"
	"github.com/aki/twig/internal/core/lifecycle"
	"github.com/aki/twig/internal/core/session"
	"github.com/aki/twig/internal/core/terminal"
)

var newCmd = &cobra.Command{
	Use:     "new [-- allocator-args...]",
	Aliases: []string{"create-ephemeral", "create"},
	Short:   "Create an ephemeral worktree",
	Long: `Create an ephemeral worktree with the configured allocator and enter it.

Inside tmux the worktree gets its own session and the client switches to it.
Outside tmux an interactive subshell is opened in the worktree; exit the shell
to return.`,
	Example: `  # Create a worktree and enter it
  twig new

  # Delete the worktree when its tmux session closes
  twig new -k

  # Start from a specific ref with the built-in allocator
  twig new -- origin/main

  # Shell integration
  cd "$(twig new --print-path)"`,
	RunE: runNew,
}

var (
	newAutoCleanup    bool
	newCleanupOnClose bool
	newNoShell        bool
	newPrintPath      bool
)

func init() {
	newCmd.Flags().BoolVarP(&newAutoCleanup, "auto-cleanup", "a", false, "Delete the worktree when this process exits")
	newCmd.Flags().BoolVarP(&newCleanupOnClose, "cleanup-on-close", "k", false, "Delete the worktree when its session closes")
	newCmd.Flags().BoolVar(&newNoShell, "no-shell", false, "Do not open a subshell outside tmux")
	newCmd.Flags().BoolVar(&newPrintPath, "print-path", false, "Print only the worktree path")
}

type newOutput struct {
	Path           string   `json:"path"`
	Branch         string   `json:"branch"`
	State          string   `json:"state"`
	Session        string   `json:"session,omitempty"`
	SessionCreated bool     `json:"sessionCreated"`
	Cleanup        string   `json:"cleanup,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

func runNew(cmd *cobra.Command, args []string) error {
	c, err := newContainer(cmd)
	if err != nil {
		return err
	}

	opts := lifecycle.Options{
		Args:                  args,
		AutoCleanup:           newAutoCleanup,
		CleanupOnSessionClose: newCleanupOnClose,
	}
	if !cmd.Flags().Changed("auto-cleanup") {
		opts.AutoCleanup = c.Config.Cleanup.AutoCleanup
	}
	if !cmd.Flags().Changed("cleanup-on-close") {
		opts.CleanupOnSessionClose = c.Config.Cleanup.OnSessionClose
	}

	result, err := c.Controller().Create(cmd.Context(), opts)
	if err != nil {
		return err
	}

	shell := shouldOpenShell(c)
	printNewResult(result, shell)
	if !shell {
		fireProcessExitCleanup(result)
		return nil
	}

	// Interrupts typed in the subshell reach us too and must not skip cleanup
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)
	go func() {
		for sig := range sigChan {
			if sig == os.Interrupt {
				continue
			}
			c.Logger.Debug("terminating on signal", "signal", sig.String())
			fireProcessExitCleanup(result)
			os.Exit(1)
		}
	}()

	if !ui.GlobalFormatter.IsJSON() {
		ui.Info("Entering worktree: %s", result.Worktree.Path)
		ui.OutputLine("Exit the shell to return to your original directory")
	}
	shellErr := runSubshell(result.Worktree.Path)
	fireProcessExitCleanup(result)
	return shellErr
}

// shouldOpenShell decides how `new` enters the worktree outside tmux
func shouldOpenShell(c *app.Container) bool {
	if newPrintPath || newNoShell {
		return false
	}
	if c.Binder != nil && c.Binder.Active() {
		return false
	}
	return terminal.IsInteractive()
}

func fireProcessExitCleanup(result *lifecycle.Result) {
	if result.Cleanup == nil || result.Cleanup.Trigger() != session.TriggerProcessExit {
		return
	}
	if result.Cleanup.Fire() && !newPrintPath && !ui.GlobalFormatter.IsJSON() {
		ui.Info("Removed ephemeral worktree %s", result.Worktree.Path)
	}
}

func printNewResult(result *lifecycle.Result, shelled bool) {
	if newPrintPath {
		printWarnings(result.Warnings)
		ui.OutputLine("%s", result.Worktree.Path)
		return
	}

	out := newOutput{
		Path:           result.Worktree.Path,
		Branch:         result.Worktree.Branch,
		State:          string(result.Worktree.State),
		SessionCreated: result.SessionCreated,
		Warnings:       result.Warnings,
	}
	if result.Session != nil {
		out.Session = result.Session.Name
	}
	if result.Cleanup != nil {
		out.Cleanup = string(result.Cleanup.Trigger())
	}

	if ui.GlobalFormatter.IsJSON() {
		_ = ui.GlobalFormatter.Output(out)
		return
	}

	printWarnings(result.Warnings)
	ui.Success("Created ephemeral worktree")
	ui.PrintWorktree(result.Worktree, out.Session)
	if out.Cleanup != "" {
		ui.PrintKeyValue("Cleanup", out.Cleanup)
	}
	if !shelled && result.Cleanup != nil && result.Cleanup.Trigger() == session.TriggerProcessExit {
		ui.Warning("No session or shell holds this worktree: auto-cleanup removes it as twig exits")
	}
}
