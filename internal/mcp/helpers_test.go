package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aki/twig/internal/adapters/tmux"
	"github.com/aki/twig/internal/app"
	"github.com/aki/twig/internal/core/config"
	"github.com/aki/twig/internal/tests/helpers"
)

// setupTestServer creates a test MCP server over a temporary git repository
// with a mock tmux
func setupTestServer(t *testing.T) (*Server, string, *tmux.MockAdapter) {
	t.Helper()
	t.Setenv(config.EnvConfig, "")

	repo := helpers.CreateTestRepo(t)
	mock := tmux.NewMockAdapter()

	server, err := NewServer(context.Background(), repo, "test", WithContainerOptions(app.WithTmux(mock)))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return server, repo, mock
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// decodeResult unmarshals the "result" field of a successful tool result
func decodeResult(t *testing.T, result *mcp.CallToolResult, v interface{}) {
	t.Helper()
	if result == nil {
		t.Fatal("nil result")
	}
	text := resultText(t, result)
	if result.IsError {
		t.Fatalf("tool returned error: %s", text)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		t.Fatalf("failed to parse result %q: %v", text, err)
	}
	if err := json.Unmarshal(envelope.Result, v); err != nil {
		t.Fatalf("failed to decode result %s: %v", envelope.Result, err)
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return text.Text
}
