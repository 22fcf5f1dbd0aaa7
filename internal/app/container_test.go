package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aki/twig/internal/adapters/tmux"
	"github.com/aki/twig/internal/core/allocator"
	"github.com/aki/twig/internal/core/config"
	"github.com/aki/twig/internal/core/lifecycle"
	"github.com/aki/twig/internal/core/registry"
	"github.com/aki/twig/internal/core/worktree"
	"github.com/aki/twig/internal/tests/helpers"
)

// NewTestContainer creates a container over a temporary repository with a mock tmux
func NewTestContainer(t *testing.T) (*Container, *tmux.MockAdapter) {
	t.Helper()
	t.Setenv(config.EnvConfig, "")

	repoPath := helpers.CreateTestRepo(t)
	mock := tmux.NewMockAdapter()

	container, err := NewContainer(context.Background(), repoPath, WithTmux(mock))
	require.NoError(t, err, "Failed to create container")
	return container, mock
}

func TestNewContainer(t *testing.T) {
	container, _ := NewTestContainer(t)

	assert.Equal(t, filepath.Join(container.WorkDir, ".git"), container.CommonDir)
	assert.Equal(t, container.WorkDir, container.MainRoot)
	assert.NotNil(t, container.ConfigManager)
	assert.NotNil(t, container.Registry)
	assert.NotNil(t, container.Binder)
	assert.Equal(t, config.DefaultConfig(), container.Config)
	assert.Equal(t, filepath.Join(container.CommonDir, "twig", "config.yaml"), container.ConfigManager.GetConfigPath())
}

func TestNewContainer_NotARepository(t *testing.T) {
	_, err := NewContainer(context.Background(), t.TempDir(), WithTmux(tmux.NewMockAdapter()))
	assert.Error(t, err)
}

func TestNewContainer_FromLinkedWorktree(t *testing.T) {
	t.Setenv(config.EnvConfig, "")
	repoPath := helpers.CreateTestRepo(t)
	wt := helpers.AddWorktree(t, repoPath, "feat-linked")

	container, err := NewContainer(context.Background(), wt, WithTmux(tmux.NewMockAdapter()))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(repoPath, ".git"), container.CommonDir)
	assert.Equal(t, repoPath, container.MainRoot)
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	t.Setenv(config.EnvConfig, "")
	repoPath := helpers.CreateTestRepo(t)

	dir := filepath.Join(repoPath, ".git", "twig")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("session:\n  ephemeralPrefix: same\n  namedPrefix: same\n"), 0o644))

	_, err := NewContainer(context.Background(), repoPath, WithTmux(tmux.NewMockAdapter()))
	assert.Error(t, err)
}

func TestContainer_Allocator(t *testing.T) {
	container, _ := NewTestContainer(t)

	_, ok := container.Allocator().(*allocator.GitAllocator)
	assert.True(t, ok, "default configuration uses the built-in allocator")

	container.Config.Allocator.Command = []string{"make-worktree"}
	_, ok = container.Allocator().(*allocator.CommandAllocator)
	assert.True(t, ok, "configured command selects the command allocator")
}

func TestContainer_CreateWithBuiltInAllocator(t *testing.T) {
	container, _ := NewTestContainer(t)

	var entered string
	controller := container.Controller(lifecycle.WithEnter(func(path string) error {
		entered = path
		return nil
	}))

	result, err := controller.Create(context.Background(), lifecycle.Options{})
	require.NoError(t, err)

	assert.Equal(t, result.Worktree.Path, entered)
	assert.DirExists(t, result.Worktree.Path)
	assert.Equal(t, filepath.Join(filepath.Dir(container.MainRoot), "repo.worktrees"), filepath.Dir(result.Worktree.Path))
	require.NotNil(t, result.Session)
	assert.Equal(t, "eph_"+result.Worktree.Branch, result.Session.Name)

	rec, ok, err := container.Registry.Get(context.Background(), result.Worktree.Path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result.Worktree.Branch, rec.Branch)
}

func TestContainer_CleanupCommand(t *testing.T) {
	container, _ := NewTestContainer(t)

	cmd := container.CleanupCommand("/ws/eph 1")
	assert.Contains(t, cmd, " cleanup --git-dir ")
	assert.Contains(t, cmd, container.CommonDir)
	assert.True(t, strings.HasSuffix(cmd, "'/ws/eph 1'"), cmd)
}

func TestContainer_Worktrees(t *testing.T) {
	container, _ := NewTestContainer(t)
	ctx := context.Background()

	controller := container.Controller(lifecycle.WithEnter(func(string) error { return nil }))
	created, err := controller.Create(ctx, lifecycle.Options{})
	require.NoError(t, err)

	manual := helpers.AddWorktree(t, container.MainRoot, "feat-manual")

	listing, err := container.Worktrees(ctx)
	require.NoError(t, err)
	require.Len(t, listing, 3)

	byPath := map[string]Listing{}
	for _, l := range listing {
		byPath[l.Path] = l
	}

	mainWt := byPath[container.MainRoot]
	assert.True(t, mainWt.Current)
	assert.Nil(t, mainWt.Record)

	eph := byPath[created.Worktree.Path]
	require.NotNil(t, eph.Record)
	assert.Equal(t, created.Worktree.Branch, eph.Branch)

	assert.Nil(t, byPath[manual].Record)
	assert.Equal(t, "feat-manual", byPath[manual].Branch)
}

func TestContainer_WorktreesDropsVanishedRecords(t *testing.T) {
	container, _ := NewTestContainer(t)
	ctx := context.Background()

	require.NoError(t, container.Registry.Put(ctx, registry.Record{
		Path:   filepath.Join(t.TempDir(), "gone"),
		Branch: "eph-gone",
		State:  worktree.StateEphemeral,
	}))

	_, err := container.Worktrees(ctx)
	require.NoError(t, err)

	records, err := container.Registry.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestContainer_PromoteThroughSymlinkedRepo(t *testing.T) {
	t.Setenv(config.EnvConfig, "")
	ctx := context.Background()
	repoPath := helpers.CreateTestRepo(t)
	linked := helpers.SymlinkedRepo(t, repoPath)

	mock := tmux.NewMockAdapter()
	mock.SetInsideSession(false)

	container, err := NewContainer(ctx, linked, WithTmux(mock))
	require.NoError(t, err)

	created, err := container.Controller(lifecycle.WithEnter(func(string) error { return nil })).
		Create(ctx, lifecycle.Options{AutoCleanup: true})
	require.NoError(t, err)
	require.NotNil(t, created.Cleanup)
	assert.True(t, strings.HasPrefix(created.Worktree.Path, filepath.Dir(linked)), "allocated under the symlinked parent")

	inside, err := NewContainer(ctx, created.Worktree.Path, WithTmux(mock))
	require.NoError(t, err)
	_, err = inside.Promoter().Promote(ctx, "feat-kept")
	require.NoError(t, err)

	records, err := container.Registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, worktree.StateNamed, records[0].State)

	named, err := container.Registry.IsNamed(ctx, created.Worktree.Path)
	require.NoError(t, err)
	assert.True(t, named)

	created.Cleanup.Fire()
	assert.DirExists(t, created.Worktree.Path, "promoted worktree survives process-exit cleanup")
}
