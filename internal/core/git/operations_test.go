package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aki/twig/internal/tests/helpers"
)

func TestOperations_BranchLifecycle(t *testing.T) {
	ctx := context.Background()
	repoDir := helpers.CreateTestRepo(t)
	ops := NewOperations(repoDir)

	require.True(t, ops.IsGitRepository())

	current, err := ops.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", current)

	exists, err := ops.BranchExists(ctx, "feature/x")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, ops.CreateBranch(ctx, "feature/x", ""))
	exists, err = ops.BranchExists(ctx, "feature/x")
	require.NoError(t, err)
	assert.True(t, exists)

	err = ops.CreateBranch(ctx, "feature/x", "")
	assert.Error(t, err, "creating an existing branch must fail")

	require.NoError(t, ops.Checkout(ctx, "feature/x"))
	current, err = ops.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "feature/x", current)

	require.NoError(t, ops.Checkout(ctx, "main"))
	require.NoError(t, ops.DeleteBranch(ctx, "feature/x"))
	exists, err = ops.BranchExists(ctx, "feature/x")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOperations_LinkedWorktree(t *testing.T) {
	ctx := context.Background()
	repoDir := helpers.CreateTestRepo(t)
	wtPath := helpers.AddWorktree(t, repoDir, "eph-1234")

	ops := NewOperations(wtPath)

	current, err := ops.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "eph-1234", current)

	common, err := ops.CommonDir(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(repoDir, ".git"), common)

	top, err := ops.TopLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, wtPath, top)

	// Branches are shared across worktrees
	exists, err := NewOperations(repoDir).BranchExists(ctx, "eph-1234")
	require.NoError(t, err)
	assert.True(t, exists)

	found, err := ops.FindWorktree(ctx, "eph-1234")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, wtPath, found.Path)

	missing, err := ops.FindWorktree(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOperations_AddAndForceRemoveWorktree(t *testing.T) {
	ctx := context.Background()
	repoDir := helpers.CreateTestRepo(t)
	ops := NewOperations(repoDir)

	path := filepath.Join(filepath.Dir(repoDir), "alloc", "eph-abcd")
	require.NoError(t, ops.AddWorktree(ctx, path, "eph-abcd", ""))
	helpers.WriteFile(t, path, "dirty.txt", "uncommitted\n")

	common, err := ops.CommonDir(ctx)
	require.NoError(t, err)

	NewOperationsForGitDir(common).ForceRemoveWorktree(ctx, path)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	found, err := ops.FindWorktree(ctx, "eph-abcd")
	require.NoError(t, err)
	assert.Nil(t, found)

	// Removing again is silent
	NewOperationsForGitDir(common).ForceRemoveWorktree(ctx, path)
}

func TestOperations_ChangedPaths(t *testing.T) {
	ctx := context.Background()
	repoDir := helpers.CreateTestRepo(t)
	ops := NewOperations(repoDir)

	paths, err := ops.ChangedPaths(ctx)
	require.NoError(t, err)
	assert.Empty(t, paths)

	helpers.WriteFile(t, repoDir, "README.md", "# changed\n")
	helpers.WriteFile(t, repoDir, "src/new.go", "package src\n")

	paths, err = ops.ChangedPaths(ctx)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	byPath := map[string]ChangedPath{}
	for _, p := range paths {
		byPath[p.Path] = p
	}
	assert.False(t, byPath["README.md"].Untracked)
	assert.True(t, byPath["src/new.go"].Untracked)
}

func TestParseStatus(t *testing.T) {
	output := []byte(" M a.txt\x00?? dir/b.txt\x00R  new.txt\x00old.txt\x00 D gone.txt\x00A  added.txt\x00")

	paths := parseStatus(output)
	require.Len(t, paths, 5)

	assert.Equal(t, ChangedPath{Path: "a.txt"}, paths[0])
	assert.Equal(t, ChangedPath{Path: "dir/b.txt", Untracked: true}, paths[1])
	assert.Equal(t, ChangedPath{Path: "new.txt"}, paths[2])
	assert.Equal(t, ChangedPath{Path: "gone.txt", Deleted: true}, paths[3])
	assert.Equal(t, ChangedPath{Path: "added.txt"}, paths[4])
}

func TestParseWorktreeList(t *testing.T) {
	output := []byte(`worktree /repo
HEAD 1111111111111111111111111111111111111111
branch refs/heads/main

worktree /ws/feat-42
HEAD 2222222222222222222222222222222222222222
branch refs/heads/feat-42

worktree /ws/detached
HEAD 3333333333333333333333333333333333333333
detached
`)

	worktrees := parseWorktreeList(output)
	require.Len(t, worktrees, 3)
	assert.Equal(t, "main", worktrees[0].Branch)
	assert.Equal(t, "/ws/feat-42", worktrees[1].Path)
	assert.Equal(t, "feat-42", worktrees[1].Branch)
	assert.True(t, worktrees[2].Detached)
	assert.Empty(t, worktrees[2].Branch)
}

func TestValidateWorktreePath(t *testing.T) {
	base := t.TempDir()

	assert.NoError(t, ValidateWorktreePath(base, "src/file.go"))
	assert.NoError(t, ValidateWorktreePath(base, "."))
	assert.Error(t, ValidateWorktreePath(base, "../outside"))
}
