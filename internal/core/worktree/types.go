// Package worktree defines the disposable worktree model shared by the lifecycle components.
package worktree

// LifecycleState represents where a worktree is in its lifecycle
type LifecycleState string

const (
	// StateEphemeral marks an anonymously named, disposable worktree
	StateEphemeral LifecycleState = "ephemeral"
	// StateNamed marks a worktree whose branch was promoted to a permanent name
	StateNamed LifecycleState = "named"
)

// Worktree represents a checkout created for short-lived work
type Worktree struct {
	Path   string         `yaml:"path" json:"path"`
	Branch string         `yaml:"branch" json:"branch"`
	State  LifecycleState `yaml:"state" json:"state"`
}

// IsEphemeral reports whether the worktree can still be promoted or auto-removed
func (w *Worktree) IsEphemeral() bool {
	return w.State == StateEphemeral
}

// IsValid reports whether the state is one of the known lifecycle states
func (s LifecycleState) IsValid() bool {
	return s == StateEphemeral || s == StateNamed
}
