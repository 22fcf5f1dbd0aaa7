package registry

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aki/twig/internal/core/worktree"
)

func TestRegistry_PutGet(t *testing.T) {
	ctx := context.Background()
	reg := Open(t.TempDir())

	_, ok, err := reg.Get(ctx, "/ws/feat-42")
	require.NoError(t, err)
	assert.False(t, ok, "empty registry has no records")

	require.NoError(t, reg.Put(ctx, Record{
		Path:    "/ws/feat-42/",
		Branch:  "feat-42",
		State:   worktree.StateEphemeral,
		Session: "eph_feat-42",
	}))

	rec, ok, err := reg.Get(ctx, "/ws/feat-42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/ws/feat-42", rec.Path)
	assert.Equal(t, worktree.StateEphemeral, rec.State)
	assert.False(t, rec.CreatedAt.IsZero())

	// Put replaces rather than duplicates
	require.NoError(t, reg.Put(ctx, Record{Path: "/ws/feat-42", Branch: "feat-42", State: worktree.StateEphemeral}))
	list, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Empty(t, list[0].Session)
}

func TestRegistry_Promote(t *testing.T) {
	ctx := context.Background()
	reg := Open(t.TempDir())

	require.NoError(t, reg.Put(ctx, Record{Path: "/ws/feat-42", Branch: "feat-42", State: worktree.StateEphemeral}))
	require.NoError(t, reg.Promote(ctx, "/ws/feat-42", "feat/163-retry", "wt_feat/163-retry"))

	rec, ok, err := reg.Get(ctx, "/ws/feat-42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "feat/163-retry", rec.Branch)
	assert.Equal(t, worktree.StateNamed, rec.State)
	require.NotNil(t, rec.PromotedAt)

	named, err := reg.IsNamed(ctx, "/ws/feat-42")
	require.NoError(t, err)
	assert.True(t, named)

	// Unregistered worktrees get a record on promotion
	require.NoError(t, reg.Promote(ctx, "/ws/manual", "manual-work", ""))
	named, err = reg.IsNamed(ctx, "/ws/manual")
	require.NoError(t, err)
	assert.True(t, named)
}

func TestRegistry_RemoveAndReconcile(t *testing.T) {
	ctx := context.Background()
	reg := Open(t.TempDir())

	base := time.Now()
	for i, name := range []string{"a", "b", "c"} {
		require.NoError(t, reg.Put(ctx, Record{
			Path:      filepath.Join("/ws", name),
			Branch:    name,
			State:     worktree.StateEphemeral,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	require.NoError(t, reg.Remove(ctx, "/ws/b"))
	require.NoError(t, reg.Remove(ctx, "/ws/unknown"))

	removed, err := reg.Reconcile(ctx, func(path string) bool { return path != "/ws/c" })
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "c", removed[0].Branch)

	list, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].Branch)
}

func TestRegistry_ConcurrentPut(t *testing.T) {
	ctx := context.Background()
	reg := Open(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a' + i))
			assert.NoError(t, reg.Put(ctx, Record{Path: "/ws/" + name, Branch: name, State: worktree.StateEphemeral}))
		}(i)
	}
	wg.Wait()

	list, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 8)
}

func TestRegistry_PathsThroughSymlinks(t *testing.T) {
	ctx := context.Background()
	reg := Open(t.TempDir())

	// t.TempDir is deliberately left unresolved
	root := t.TempDir()
	actual := filepath.Join(root, "real")
	require.NoError(t, os.MkdirAll(filepath.Join(actual, "repo.worktrees", "eph-1"), 0o755))
	require.NoError(t, os.Symlink(actual, filepath.Join(root, "link")))

	linked := filepath.Join(root, "link", "repo.worktrees", "eph-1")
	resolved, err := filepath.EvalSymlinks(filepath.Join(actual, "repo.worktrees", "eph-1"))
	require.NoError(t, err)

	require.NoError(t, reg.Put(ctx, Record{Path: linked, Branch: "eph-1", State: worktree.StateEphemeral}))
	require.NoError(t, reg.Promote(ctx, resolved, "feat-kept", ""))

	list, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1, "one worktree, one record")
	assert.Equal(t, resolved, list[0].Path)

	named, err := reg.IsNamed(ctx, linked)
	require.NoError(t, err)
	assert.True(t, named)

	// keys still match once the directory is gone
	require.NoError(t, os.RemoveAll(resolved))
	require.NoError(t, reg.Remove(ctx, linked))
	list, err = reg.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
