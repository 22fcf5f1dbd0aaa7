package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aki/twig/internal/adapters/tmux"
	"github.com/aki/twig/internal/core/registry"
	"github.com/aki/twig/internal/core/worktree"
	"github.com/aki/twig/internal/tests/helpers"
)

func TestNewServer_NotARepository(t *testing.T) {
	_, err := NewServer(context.Background(), t.TempDir(), "test")
	assert.Error(t, err)
}

func TestWorktreeCreateAndPromote(t *testing.T) {
	server, repo, mock := setupTestServer(t)
	ctx := context.Background()

	res, err := server.handleWorktreeCreate(ctx, callRequest("worktree_create", map[string]interface{}{
		"cleanup_on_close": true,
	}))
	require.NoError(t, err)

	var created createdWorktree
	decodeResult(t, res, &created)
	assert.DirExists(t, created.Path)
	assert.Equal(t, "ephemeral", created.State)
	assert.Equal(t, "eph_"+created.Branch, created.Session)
	assert.Equal(t, "session-close", created.Cleanup)

	hooks, err := mock.GlobalHooks(tmux.SessionClosedEvent)
	require.NoError(t, err)
	assert.Len(t, hooks, 1)

	res, err = server.handleWorktreePromote(ctx, callRequest("worktree_promote", map[string]interface{}{
		"path": created.Path,
		"name": "feat-kept",
	}))
	require.NoError(t, err)

	var promoted promotedWorktree
	decodeResult(t, res, &promoted)
	assert.Equal(t, "feat-kept", promoted.Branch)
	assert.Equal(t, created.Branch, promoted.PreviousBranch)
	assert.Equal(t, "wt_feat-kept", promoted.Session)

	assert.True(t, mock.SessionExists("wt_feat-kept"))
	assert.Empty(t, mock.CloseSession("wt_feat-kept"), "promotion removes the cleanup hook")

	named, err := registry.Open(filepath.Join(repo, ".git")).IsNamed(ctx, created.Path)
	require.NoError(t, err)
	assert.True(t, named)
}

func TestWorktreeCreate_ProcessExitCleanupFiresOnClose(t *testing.T) {
	server, _, mock := setupTestServer(t)
	mock.SetInsideSession(false)
	ctx := context.Background()

	res, err := server.handleWorktreeCreate(ctx, callRequest("worktree_create", map[string]interface{}{
		"auto_cleanup": true,
	}))
	require.NoError(t, err)

	var created createdWorktree
	decodeResult(t, res, &created)
	assert.Empty(t, created.Session)
	assert.Equal(t, "process-exit", created.Cleanup)
	assert.DirExists(t, created.Path)

	server.Close()
	assert.NoDirExists(t, created.Path)
}

func TestWorktreePromote_DisarmsPendingCleanup(t *testing.T) {
	server, _, mock := setupTestServer(t)
	mock.SetInsideSession(false)
	ctx := context.Background()

	res, err := server.handleWorktreeCreate(ctx, callRequest("worktree_create", map[string]interface{}{
		"auto_cleanup": true,
	}))
	require.NoError(t, err)
	var created createdWorktree
	decodeResult(t, res, &created)

	res, err = server.handleWorktreePromote(ctx, callRequest("worktree_promote", map[string]interface{}{
		"path": created.Path,
		"name": "feat-survivor",
	}))
	require.NoError(t, err)
	var promoted promotedWorktree
	decodeResult(t, res, &promoted)
	assert.NotEmpty(t, promoted.Warnings, "missing session is reported as a warning")

	server.Close()
	assert.DirExists(t, created.Path)
}

func TestWorktreePromote_Errors(t *testing.T) {
	server, repo, _ := setupTestServer(t)
	ctx := context.Background()

	res, err := server.handleWorktreePromote(ctx, callRequest("worktree_promote", map[string]interface{}{
		"path": repo,
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = server.handleWorktreePromote(ctx, callRequest("worktree_promote", map[string]interface{}{
		"path": repo,
		"name": "main",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), worktree.ErrBranchAlreadyExists.Error())
}

func TestWorktreeCopy(t *testing.T) {
	server, repo, _ := setupTestServer(t)
	ctx := context.Background()

	target := helpers.AddWorktree(t, repo, "feat-target")
	helpers.WriteFile(t, repo, ".env", "TOKEN=1\n")
	helpers.WriteFile(t, repo, "README.md", "# changed\n")

	res, err := server.handleWorktreeCopy(ctx, callRequest("worktree_copy", map[string]interface{}{
		"path":   repo,
		"target": "feat-target",
		"items":  ".env, missing.txt",
	}))
	require.NoError(t, err)

	var out struct {
		Target string       `json:"target"`
		Items  []copiedItem `json:"items"`
	}
	decodeResult(t, res, &out)
	assert.Equal(t, target, out.Target)
	require.Len(t, out.Items, 2)
	assert.Empty(t, out.Items[0].Error)
	assert.Contains(t, out.Items[1].Error, "item not found")

	data, err := os.ReadFile(filepath.Join(target, ".env"))
	require.NoError(t, err)
	assert.Equal(t, "TOKEN=1\n", string(data))

	res, err = server.handleWorktreeCopy(ctx, callRequest("worktree_copy", map[string]interface{}{
		"path":   repo,
		"target": "no-such-branch",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "feat-target")
	assert.Contains(t, text, "worktree_list")
}

func TestWorktreeList(t *testing.T) {
	server, repo, _ := setupTestServer(t)
	ctx := context.Background()

	res, err := server.handleWorktreeCreate(ctx, callRequest("worktree_create", nil))
	require.NoError(t, err)
	var created createdWorktree
	decodeResult(t, res, &created)

	res, err = server.handleWorktreeList(ctx, callRequest("worktree_list", nil))
	require.NoError(t, err)

	var listed []listedWorktree
	decodeResult(t, res, &listed)
	require.Len(t, listed, 2)

	for _, w := range listed {
		switch w.Path {
		case repo:
			assert.Equal(t, "main", w.Branch)
			assert.Empty(t, w.State)
		case created.Path:
			assert.Equal(t, "ephemeral", w.State)
			assert.NotNil(t, w.CreatedAt)
		default:
			t.Errorf("unexpected worktree %s", w.Path)
		}
	}
}

func TestExcludeTools(t *testing.T) {
	server, _, _ := setupTestServer(t)
	ctx := context.Background()

	res, err := server.handleExcludeAdd(ctx, callRequest("exclude_add", map[string]interface{}{
		"patterns": ".env\n*.local,.env",
	}))
	require.NoError(t, err)

	var added map[string][]string
	decodeResult(t, res, &added)
	assert.Equal(t, []string{".env", "*.local"}, added["added"])
	assert.Equal(t, []string{".env"}, added["duplicates"])

	res, err = server.handleExcludeList(ctx, callRequest("exclude_list", nil))
	require.NoError(t, err)
	var patterns []string
	decodeResult(t, res, &patterns)
	assert.Equal(t, []string{".env", "*.local"}, patterns)

	res, err = server.handleExcludeAdd(ctx, callRequest("exclude_add", map[string]interface{}{"patterns": " , "}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b c", "d"}, splitList("a, b c\n,d"))
	assert.Nil(t, splitList(""))
}

func TestErrorWithSuggestions(t *testing.T) {
	err := TargetNotFoundError(&worktree.TargetNotFoundError{Branch: "x", Known: []string{"main"}})
	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, `no worktree for branch "x"`), msg)
	assert.Contains(t, msg, "worktree_list")

	plain := NewErrorWithSuggestions("plain")
	assert.Equal(t, "plain", plain.Error())
}
