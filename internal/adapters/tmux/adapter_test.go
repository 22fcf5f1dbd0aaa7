package tmux

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipIfNoTmux(t *testing.T) Adapter {
	t.Helper()
	adapter, err := NewAdapter()
	if err != nil || !adapter.IsAvailable() {
		t.Skip("tmux not available on this system")
	}
	return adapter
}

// isolatedTmux points tmux at a private server so global hooks never touch
// the user's own server
func isolatedTmux(t *testing.T) Adapter {
	t.Helper()
	adapter := skipIfNoTmux(t)

	// short path: tmux sockets are limited in length
	dir, err := os.MkdirTemp("", "twig-tmux")
	require.NoError(t, err)
	t.Setenv("TMUX", "")
	t.Setenv("TMUX_TMPDIR", dir)
	t.Cleanup(func() {
		_ = exec.Command("tmux", "kill-server").Run()
		_ = os.RemoveAll(dir)
	})
	return adapter
}

func TestAdapter_SessionLifecycle(t *testing.T) {
	adapter := isolatedTmux(t)

	name := "twig-test-" + time.Now().Format("20060102-150405.000")
	renamed := name + "-renamed"
	// tmux rewrites '.' in session names
	name = sanitize(name)
	renamed = sanitize(renamed)

	require.NoError(t, adapter.CreateSession(name, t.TempDir()))
	t.Cleanup(func() {
		_ = adapter.KillSession(name)
		_ = adapter.KillSession(renamed)
	})

	assert.True(t, adapter.SessionExists(name))
	assert.False(t, adapter.SessionExists(name[:len(name)-1]), "targets must match exactly")

	id, err := adapter.SessionID(name)
	require.NoError(t, err)
	assert.Regexp(t, `^\$\d+$`, id)
	ids, err := adapter.ListSessionIDs()
	require.NoError(t, err)
	assert.Contains(t, ids, id)

	require.NoError(t, adapter.RenameSession(name, renamed))
	assert.False(t, adapter.SessionExists(name))
	assert.True(t, adapter.SessionExists(renamed))
	renamedID, err := adapter.SessionID(renamed)
	require.NoError(t, err)
	assert.Equal(t, id, renamedID, "ids survive renames")

	err = adapter.RenameSession(name, "whatever")
	assert.True(t, errors.Is(err, ErrNoSession))
	_, err = adapter.SessionID(name)
	assert.True(t, errors.Is(err, ErrNoSession))

	require.NoError(t, adapter.KillSession(renamed))
	assert.False(t, adapter.SessionExists(renamed))
}

func TestAdapter_SessionClosedGlobalHook(t *testing.T) {
	adapter := isolatedTmux(t)
	dir := t.TempDir()

	// keeps the server alive once the other sessions close
	require.NoError(t, adapter.CreateSession("twig-keeper", dir))
	require.NoError(t, adapter.CreateSession("twig-watched", dir))
	require.NoError(t, adapter.CreateSession("twig-other", dir))

	id, err := adapter.SessionID("twig-watched")
	require.NoError(t, err)

	marker := filepath.Join(dir, "closed")
	hook := "if-shell -F '#{==:#{hook_session}," + id + "}' " + Quote("run-shell -b "+Quote("touch "+marker))
	require.NoError(t, adapter.SetGlobalHook(SessionClosedEvent, 1000, hook))

	hooks, err := adapter.GlobalHooks(SessionClosedEvent)
	require.NoError(t, err)
	assert.Contains(t, hooks, 1000)

	require.NoError(t, adapter.KillSession("twig-other"))
	time.Sleep(300 * time.Millisecond)
	assert.NoFileExists(t, marker, "hook must only fire for its own session")

	require.NoError(t, adapter.KillSession("twig-watched"))
	assert.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond, "session-closed hook did not run")

	require.NoError(t, adapter.UnsetGlobalHook(SessionClosedEvent, 1000))
	require.NoError(t, adapter.UnsetGlobalHook(SessionClosedEvent, 1000), "unset must be idempotent")
	hooks, err = adapter.GlobalHooks(SessionClosedEvent)
	require.NoError(t, err)
	assert.NotContains(t, hooks, 1000)
}

func sanitize(name string) string {
	out := []byte(name)
	for i, c := range out {
		if c == '.' || c == ':' {
			out[i] = '_'
		}
	}
	return string(out)
}
