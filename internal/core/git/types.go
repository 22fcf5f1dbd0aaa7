package git

// WorktreeInfo represents information about a git worktree
type WorktreeInfo struct {
	Path     string
	Branch   string
	Commit   string
	Detached bool
	Bare     bool
}

// ChangedPath is an entry reported by the status query
type ChangedPath struct {
	// Path is relative to the worktree root, slash separated
	Path      string
	Untracked bool
	Deleted   bool
}
