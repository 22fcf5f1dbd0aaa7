package session

import "sync"

// Trigger identifies what fires a cleanup registration
type Trigger string

const (
	// TriggerSessionClose fires when the bound tmux session terminates
	TriggerSessionClose Trigger = "session-close"
	// TriggerProcessExit fires when the creating process finishes
	TriggerProcessExit Trigger = "process-exit"
)

// CleanupRegistration is a deferred "force-remove this worktree" action.
//
// Arm and Disarm are idempotent. For session-close registrations Disarm
// always asks the multiplexer to drop the hook, even if this value never
// armed it, so a registration rebuilt in a later process can disarm a hook
// installed by an earlier one.
type CleanupRegistration struct {
	mu      sync.Mutex
	trigger Trigger
	path    string
	armed   bool

	install func() error
	remove  func() error
	action  func()
	once    sync.Once
}

// NewProcessExitCleanup returns a registration that runs action at most once
// when Fire is called while armed.
func NewProcessExitCleanup(path string, action func()) *CleanupRegistration {
	return &CleanupRegistration{
		trigger: TriggerProcessExit,
		path:    path,
		action:  action,
	}
}

// Trigger reports what fires the registration
func (c *CleanupRegistration) Trigger() Trigger {
	return c.trigger
}

// Path returns the worktree the registration deletes
func (c *CleanupRegistration) Path() string {
	return c.path
}

// Arm activates the registration
func (c *CleanupRegistration) Arm() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.armed {
		return nil
	}
	if c.install != nil {
		if err := c.install(); err != nil {
			return err
		}
	}
	c.armed = true
	return nil
}

// Disarm deactivates the registration
func (c *CleanupRegistration) Disarm() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.armed = false
	if c.remove != nil {
		return c.remove()
	}
	return nil
}

// Armed reports whether the registration is active in this process
func (c *CleanupRegistration) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Fire runs a process-exit action if armed. Session-close registrations are
// fired by tmux, so Fire is a no-op for them. Reports whether the action ran.
func (c *CleanupRegistration) Fire() bool {
	c.mu.Lock()
	armed := c.armed
	c.mu.Unlock()

	if !armed || c.action == nil {
		return false
	}

	ran := false
	c.once.Do(func() {
		c.action()
		ran = true
	})
	return ran
}
