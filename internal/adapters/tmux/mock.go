package tmux

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MockAdapter is a mock implementation of tmux operations for testing
type MockAdapter struct {
	mu          sync.RWMutex
	sessions    map[string]*MockSession
	hooks       map[string]map[int]string
	nextID      int
	available   bool
	inside      bool
	switchedTo  []string
	createError error
	renameError error
	hookError   error
}

// MockSession represents a mock tmux session for testing
type MockSession struct {
	ID          string
	Name        string
	WorkDir     string
	Environment map[string]string
}

// NewMockAdapter creates a new mock adapter that behaves as if running inside tmux
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		sessions:  make(map[string]*MockSession),
		hooks:     make(map[string]map[int]string),
		available: true,
		inside:    true,
	}
}

// SetAvailable sets whether tmux is available
func (m *MockAdapter) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

// SetInsideSession sets whether the caller appears to run inside tmux
func (m *MockAdapter) SetInsideSession(inside bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inside = inside
}

// SetCreateError sets an error to return from CreateSession
func (m *MockAdapter) SetCreateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createError = err
}

// SetRenameError sets an error to return from RenameSession
func (m *MockAdapter) SetRenameError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renameError = err
}

// SetHookError sets an error to return from SetGlobalHook
func (m *MockAdapter) SetHookError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hookError = err
}

// IsAvailable checks if tmux is available on the system
func (m *MockAdapter) IsAvailable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available
}

// InsideSession reports the configured inside-tmux state
func (m *MockAdapter) InsideSession() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inside
}

// CreateSession creates a new tmux session
func (m *MockAdapter) CreateSession(sessionName, workDir string) error {
	return m.CreateSessionWithOptions(CreateSessionOptions{
		SessionName: sessionName,
		WorkDir:     workDir,
	})
}

// CreateSessionWithOptions creates a new tmux session with custom options
func (m *MockAdapter) CreateSessionWithOptions(opts CreateSessionOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createError != nil {
		return m.createError
	}

	if _, exists := m.sessions[opts.SessionName]; exists {
		return fmt.Errorf("duplicate session: %s", opts.SessionName)
	}

	env := make(map[string]string)
	for k, v := range opts.Environment {
		env[k] = v
	}

	m.sessions[opts.SessionName] = &MockSession{
		ID:          fmt.Sprintf("$%d", m.nextID),
		Name:        opts.SessionName,
		WorkDir:     opts.WorkDir,
		Environment: env,
	}
	m.nextID++

	return nil
}

// SessionExists checks if a tmux session exists
func (m *MockAdapter) SessionExists(sessionName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.sessions[sessionName]
	return exists
}

// KillSession kills a tmux session
func (m *MockAdapter) KillSession(sessionName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionName)
	return nil
}

// SwitchClient records the switch
func (m *MockAdapter) SwitchClient(sessionName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionName]; !exists {
		return fmt.Errorf("%w: %s", ErrNoSession, sessionName)
	}
	m.switchedTo = append(m.switchedTo, sessionName)
	return nil
}

// RenameSession renames a session, keeping its id
func (m *MockAdapter) RenameSession(oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.renameError != nil {
		return m.renameError
	}

	session, exists := m.sessions[oldName]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNoSession, oldName)
	}
	if _, taken := m.sessions[newName]; taken {
		return fmt.Errorf("duplicate session: %s", newName)
	}

	delete(m.sessions, oldName)
	session.Name = newName
	m.sessions[newName] = session
	return nil
}

// ListSessions returns a sorted list of active tmux sessions
func (m *MockAdapter) ListSessions() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]string, 0, len(m.sessions))
	for name := range m.sessions {
		sessions = append(sessions, name)
	}
	sort.Strings(sessions)

	return sessions, nil
}

// SessionID returns the id of the session
func (m *MockAdapter) SessionID(sessionName string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionName]
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrNoSession, sessionName)
	}
	return session.ID, nil
}

// ListSessionIDs returns the ids of all sessions, sorted
func (m *MockAdapter) ListSessionIDs() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for _, session := range m.sessions {
		ids = append(ids, session.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

// SetGlobalHook sets one entry of a global hook
func (m *MockAdapter) SetGlobalHook(event string, index int, command string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hookError != nil {
		return m.hookError
	}
	if m.hooks[event] == nil {
		m.hooks[event] = make(map[int]string)
	}
	m.hooks[event][index] = command
	return nil
}

// UnsetGlobalHook clears one entry of a global hook
func (m *MockAdapter) UnsetGlobalHook(event string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hooks[event], index)
	return nil
}

// GlobalHooks returns a copy of the entries of a global hook
func (m *MockAdapter) GlobalHooks(event string) (map[int]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hooks := make(map[int]string, len(m.hooks[event]))
	for index, command := range m.hooks[event] {
		hooks[index] = command
	}
	return hooks, nil
}

// CloseSession simulates the session terminating. It returns, in index
// order, the commands tmux would run from the global session-closed hook:
// `if-shell -F` entries run their command only when the condition holds
// for the closed session.
func (m *MockAdapter) CloseSession(sessionName string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionName]
	if !exists {
		return nil
	}
	delete(m.sessions, sessionName)

	indices := make([]int, 0, len(m.hooks[SessionClosedEvent]))
	for index := range m.hooks[SessionClosedEvent] {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	var fired []string
	for _, index := range indices {
		if command, ok := evalHook(m.hooks[SessionClosedEvent][index], session); ok {
			fired = append(fired, command)
		}
	}
	return fired
}

// evalHook understands the `if-shell -F '#{==:a,b}' command` form and
// expands the hook_session formats; other hooks always run.
func evalHook(hook string, session *MockSession) (string, bool) {
	rest, conditional := strings.CutPrefix(hook, "if-shell -F '")
	if !conditional {
		return hook, true
	}
	cond, command, found := strings.Cut(rest, "' ")
	if !found {
		return "", false
	}

	cond = strings.NewReplacer(
		"#{hook_session_name}", session.Name,
		"#{hook_session}", session.ID,
	).Replace(cond)
	cond, isEq := strings.CutPrefix(cond, "#{==:")
	if !isEq || !strings.HasSuffix(cond, "}") {
		return "", false
	}
	left, right, _ := strings.Cut(strings.TrimSuffix(cond, "}"), ",")
	if left != right {
		return "", false
	}
	return Unquote(strings.TrimSpace(command)), true
}

// GetSession returns a copy of a session for assertions
func (m *MockAdapter) GetSession(sessionName string) (MockSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionName]
	if !exists {
		return MockSession{}, false
	}

	return *session, true
}

// SwitchedTo returns the sessions the client was switched to, in order
func (m *MockAdapter) SwitchedTo() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.switchedTo...)
}
