package worktree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchFromPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "absolute path", path: "/ws/feat-42", want: "feat-42"},
		{name: "trailing slash", path: "/ws/feat-42/", want: "feat-42"},
		{name: "surrounding whitespace", path: "  /tmp/wt/eph-1a2b3c4d\n", want: "eph-1a2b3c4d"},
		{name: "relative path", path: "worktrees/scratch", want: "scratch"},
		{name: "empty", path: "", wantErr: true},
		{name: "blank", path: "   ", wantErr: true},
		{name: "root", path: "/", wantErr: true},
		{name: "dot", path: ".", wantErr: true},
		{name: "hidden segment", path: "/ws/.hidden", wantErr: true},
		{name: "lock suffix", path: "/ws/name.lock", wantErr: true},
		{name: "space in segment", path: "/ws/my branch", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BranchFromPath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidName))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateBranchName(t *testing.T) {
	valid := []string{"feat-42", "feat/163-retry", "release/v1.2", "a"}
	for _, name := range valid {
		assert.NoError(t, ValidateBranchName(name), name)
	}

	invalid := []string{"", "@", "-x", "/lead", "trail/", "dot.", "x.lock", "a..b", "a@{b", "a//b", "a b", "a~b", "a^b", "a:b", "a?b", "a*b", "a[b", `a\b`, "feat/.hidden"}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateBranchName(name), ErrInvalidName, name)
	}
}

func TestSessionName(t *testing.T) {
	assert.Equal(t, "eph_feat-42", SessionName("eph_", "feat-42"))
	assert.Equal(t, "wt_feat/163-retry", SessionName("wt_", "feat/163-retry"))
	assert.Equal(t, "wt_release/v1_2", SessionName("wt_", "release/v1.2"))
}

func TestTargetNotFoundError(t *testing.T) {
	err := &TargetNotFoundError{Branch: "missing", Known: []string{"main", "feat-1"}}

	assert.ErrorIs(t, err, ErrTargetNotFound)
	assert.Contains(t, err.Error(), "missing")
	assert.Contains(t, err.Error(), "main, feat-1")

	var target *TargetNotFoundError
	require.True(t, errors.As(error(err), &target))
	assert.Equal(t, []string{"main", "feat-1"}, target.Known)
}

func TestItemError(t *testing.T) {
	err := &ItemError{Item: "docs/missing.md", Err: ErrItemNotFound}
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Equal(t, "docs/missing.md: item not found", err.Error())
}
