package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aki/twig/internal/core/lifecycle"
	"github.com/aki/twig/internal/core/transfer"
	"github.com/aki/twig/internal/core/worktree"
)

type createdWorktree struct {
	Path     string   `json:"path"`
	Branch   string   `json:"branch"`
	State    string   `json:"state"`
	Session  string   `json:"session,omitempty"`
	Cleanup  string   `json:"cleanup,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

type promotedWorktree struct {
	Path           string   `json:"path"`
	Branch         string   `json:"branch"`
	PreviousBranch string   `json:"previous_branch"`
	Session        string   `json:"session,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

type copiedItem struct {
	Item  string `json:"item"`
	Dir   bool   `json:"dir,omitempty"`
	Error string `json:"error,omitempty"`
}

type listedWorktree struct {
	Path      string     `json:"path"`
	Branch    string     `json:"branch"`
	State     string     `json:"state,omitempty"`
	Session   string     `json:"session,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Current   bool       `json:"current"`
}

func (s *Server) handleWorktreeCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	c, err := s.container(ctx, stringArg(args, "repository"))
	if err != nil {
		return toolError(err), nil
	}

	opts := lifecycle.Options{
		AutoCleanup:           boolArg(args, "auto_cleanup"),
		CleanupOnSessionClose: boolArg(args, "cleanup_on_close"),
	}
	if base := stringArg(args, "base"); base != "" {
		opts.Args = []string{base}
	}

	// The server never changes its own directory
	controller := c.Controller(lifecycle.WithEnter(func(string) error { return nil }))
	result, err := controller.Create(ctx, opts)
	if err != nil {
		return toolError(err), nil
	}
	s.trackCleanup(result.Cleanup)

	out := createdWorktree{
		Path:     result.Worktree.Path,
		Branch:   result.Worktree.Branch,
		State:    string(result.Worktree.State),
		Warnings: result.Warnings,
	}
	if result.Session != nil {
		out.Session = result.Session.Name
	}
	if result.Cleanup != nil {
		out.Cleanup = string(result.Cleanup.Trigger())
	}
	return jsonResult("worktree_create", out)
}

func (s *Server) handleWorktreePromote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	path := stringArg(args, "path")
	name := stringArg(args, "name")
	if path == "" || name == "" {
		return mcp.NewToolResultError("missing required parameters: path and name"), nil
	}

	c, err := s.container(ctx, path)
	if err != nil {
		return toolError(err), nil
	}

	var opts []lifecycle.PromoterOption
	if reg := s.takeCleanup(path); reg != nil {
		opts = append(opts, lifecycle.WithCleanupRegistration(reg))
		defer func() {
			// Promotion failed before disarming: keep the cleanup pending
			if reg.Armed() {
				s.trackCleanup(reg)
			}
		}()
	}

	result, err := c.Promoter(opts...).Promote(ctx, name)
	if err != nil {
		return toolError(err), nil
	}

	out := promotedWorktree{
		Path:           result.Worktree.Path,
		Branch:         result.Worktree.Branch,
		PreviousBranch: result.PreviousBranch,
		Warnings:       result.Warnings,
	}
	if result.Session != nil {
		out.Session = result.Session.Name
	}
	return jsonResult("worktree_promote", out)
}

func (s *Server) handleWorktreeCopy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	path := stringArg(args, "path")
	target := stringArg(args, "target")
	if path == "" || target == "" {
		return mcp.NewToolResultError("missing required parameters: path and target"), nil
	}

	c, err := s.container(ctx, path)
	if err != nil {
		return toolError(err), nil
	}

	report, err := c.Copier().Copy(ctx, transfer.Request{
		Target:  target,
		Items:   splitList(stringArg(args, "items")),
		WorkDir: path,
	})
	if err != nil {
		return toolError(err), nil
	}

	items := make([]copiedItem, 0, len(report.Entries))
	for _, e := range report.Entries {
		item := copiedItem{Item: e.Item, Dir: e.Dir}
		if e.Err != nil {
			item.Error = e.Err.Error()
		}
		items = append(items, item)
	}
	return jsonResult("worktree_copy", map[string]interface{}{
		"source": report.Root,
		"target": report.Target,
		"items":  items,
	})
}

func (s *Server) handleWorktreeList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	c, err := s.container(ctx, stringArg(args, "repository"))
	if err != nil {
		return toolError(err), nil
	}

	listing, err := c.Worktrees(ctx)
	if err != nil {
		return toolError(err), nil
	}

	out := make([]listedWorktree, 0, len(listing))
	for _, l := range listing {
		w := listedWorktree{Path: l.Path, Branch: l.Branch, Current: l.Current}
		if l.Record != nil {
			created := l.Record.CreatedAt
			w.State = string(l.Record.State)
			w.Session = l.Record.Session
			w.CreatedAt = &created
		}
		out = append(out, w)
	}
	return jsonResult("worktree_list", out)
}

func (s *Server) handleExcludeAdd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	patterns := splitList(stringArg(args, "patterns"))
	if len(patterns) == 0 {
		return mcp.NewToolResultError("missing required parameter: patterns"), nil
	}

	c, err := s.container(ctx, stringArg(args, "repository"))
	if err != nil {
		return toolError(err), nil
	}

	result, err := c.ExcludeStore().Add(ctx, patterns)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult("exclude_add", map[string][]string{
		"added":      nonNil(result.Added),
		"duplicates": nonNil(result.Duplicates),
	})
}

func (s *Server) handleExcludeList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	c, err := s.container(ctx, stringArg(args, "repository"))
	if err != nil {
		return toolError(err), nil
	}

	patterns, err := c.ExcludeStore().List(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult("exclude_list", nonNil(patterns))
}

// jsonResult wraps content together with follow-up tool suggestions
func jsonResult(toolName string, content interface{}) (*mcp.CallToolResult, error) {
	type enhancedResult struct {
		Result    interface{}         `json:"result"`
		NextTools []map[string]string `json:"suggested_next_tools,omitempty"`
	}

	data, err := json.MarshalIndent(enhancedResult{
		Result:    content,
		NextTools: GetNextToolSuggestions(toolName),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError reports err to the client, adding suggestions for known failures
func toolError(err error) *mcp.CallToolResult {
	var notFound *worktree.TargetNotFoundError
	switch {
	case errors.As(err, &notFound):
		err = TargetNotFoundError(notFound)
	case errors.Is(err, worktree.ErrNotInWorktree), errors.Is(err, worktree.ErrAlreadyNamed):
		err = NewErrorWithSuggestions(err.Error(), "worktree_list - Find the ephemeral worktrees that can be promoted")
	}
	return mcp.NewToolResultError(err.Error())
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func boolArg(args map[string]interface{}, key string) bool {
	v, _ := args[key].(bool)
	return v
}

// splitList accepts comma or newline separated values
func splitList(s string) []string {
	var out []string
	for _, field := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' }) {
		if f := strings.TrimSpace(field); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
