package tmux

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockAdapter_CreateSessionWithOptions(t *testing.T) {
	adapter := NewMockAdapter()

	err := adapter.CreateSessionWithOptions(CreateSessionOptions{
		SessionName: "eph_feat-42",
		WorkDir:     "/ws/feat-42",
		Environment: map[string]string{"TWIG_WORKTREE": "/ws/feat-42"},
	})
	require.NoError(t, err)

	session, ok := adapter.GetSession("eph_feat-42")
	require.True(t, ok)
	assert.Equal(t, "/ws/feat-42", session.WorkDir)
	assert.Equal(t, "/ws/feat-42", session.Environment["TWIG_WORKTREE"])

	err = adapter.CreateSession("eph_feat-42", "/elsewhere")
	assert.Error(t, err, "duplicate sessions are rejected")
}

func TestMockAdapter_RenameKeepsID(t *testing.T) {
	adapter := NewMockAdapter()
	require.NoError(t, adapter.CreateSession("eph_a", "/ws/a"))
	id, err := adapter.SessionID("eph_a")
	require.NoError(t, err)

	require.NoError(t, adapter.RenameSession("eph_a", "wt_a"))

	renamed, err := adapter.SessionID("wt_a")
	require.NoError(t, err)
	assert.Equal(t, id, renamed)
	assert.False(t, adapter.SessionExists("eph_a"))

	_, err = adapter.SessionID("eph_a")
	assert.True(t, errors.Is(err, ErrNoSession))

	err = adapter.RenameSession("eph_a", "wt_b")
	assert.True(t, errors.Is(err, ErrNoSession))
}

func TestMockAdapter_CloseSessionFiresGlobalHooks(t *testing.T) {
	adapter := NewMockAdapter()
	require.NoError(t, adapter.CreateSession("eph_a", "/ws/a"))
	require.NoError(t, adapter.CreateSession("eph_b", "/ws/b"))
	idA, _ := adapter.SessionID("eph_a")

	require.NoError(t, adapter.SetGlobalHook(SessionClosedEvent, 0, "run-shell -b always"))
	require.NoError(t, adapter.SetGlobalHook(SessionClosedEvent, 5,
		"if-shell -F '#{==:#{hook_session},"+idA+"}' "+Quote(`run-shell -b "cleanup a"`)))

	assert.Equal(t, []string{"run-shell -b always"}, adapter.CloseSession("eph_b"))
	assert.Equal(t, []string{"run-shell -b always", `run-shell -b "cleanup a"`}, adapter.CloseSession("eph_a"))
	assert.False(t, adapter.SessionExists("eph_a"))
	assert.Nil(t, adapter.CloseSession("eph_a"))

	require.NoError(t, adapter.UnsetGlobalHook(SessionClosedEvent, 5))
	require.NoError(t, adapter.UnsetGlobalHook(SessionClosedEvent, 5))
	hooks, err := adapter.GlobalHooks(SessionClosedEvent)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "run-shell -b always"}, hooks)
}

func TestMockAdapter_SwitchClient(t *testing.T) {
	adapter := NewMockAdapter()
	require.NoError(t, adapter.CreateSession("eph_a", "/ws/a"))

	require.NoError(t, adapter.SwitchClient("eph_a"))
	assert.Error(t, adapter.SwitchClient("missing"))
	assert.Equal(t, []string{"eph_a"}, adapter.SwitchedTo())
}
