package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aki/twig/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server on stdio, exposing worktree
creation, promotion, copying and the shared exclude file as tools.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

var mcpRootDir string

func init() {
	mcpCmd.Flags().StringVar(&mcpRootDir, "root-dir", "", "Repository the tools default to (defaults to the current directory)")
}

func runMCP(cmd *cobra.Command, args []string) error {
	root := mcpRootDir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid root directory: %w", err)
	}

	server, err := mcp.NewServer(cmd.Context(), root, Version, mcp.WithLogger(CreateLogger()))
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// stdout carries the protocol; everything else goes to stderr
	fmt.Fprintf(os.Stderr, "Starting twig MCP server for %s on stdio\n", root)
	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
