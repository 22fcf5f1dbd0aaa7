package tmux

// SessionClosedEvent is the tmux hook fired when a session is destroyed.
// tmux runs it after the session is gone, so only global entries fire.
const SessionClosedEvent = "session-closed"

// CreateSessionOptions contains options for creating a tmux session
type CreateSessionOptions struct {
	SessionName string
	WorkDir     string
	WindowName  string            // Optional: custom window name
	Environment map[string]string // Optional: environment variables to set
}

// Adapter defines the interface for tmux operations
type Adapter interface {
	IsAvailable() bool
	// InsideSession reports whether the current process runs inside a tmux client
	InsideSession() bool
	CreateSession(sessionName, workDir string) error
	CreateSessionWithOptions(opts CreateSessionOptions) error
	SessionExists(sessionName string) bool
	KillSession(sessionName string) error
	SwitchClient(sessionName string) error
	RenameSession(oldName, newName string) error
	ListSessions() ([]string, error)
	// SessionID returns the "$N" id of a session, which survives renames
	SessionID(sessionName string) (string, error)
	ListSessionIDs() ([]string, error)
	// SetGlobalHook sets entry index of a global hook array
	SetGlobalHook(event string, index int, command string) error
	// UnsetGlobalHook clears entry index. An absent entry is not an error.
	UnsetGlobalHook(event string, index int) error
	// GlobalHooks returns the entries of a global hook by index
	GlobalHooks(event string) (map[int]string, error)
}
