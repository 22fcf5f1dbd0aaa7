package config

// Config is the twig configuration shared by all worktrees of a repository
type Config struct {
	Allocator AllocatorConfig `yaml:"allocator" json:"allocator"`
	Session   SessionConfig   `yaml:"session" json:"session"`
	Cleanup   CleanupConfig   `yaml:"cleanup" json:"cleanup"`
	// Editor overrides $VISUAL/$EDITOR for `exclude edit` and `config edit`
	Editor string `yaml:"editor,omitempty" json:"editor,omitempty"`
}

// AllocatorConfig selects how new worktrees are created
type AllocatorConfig struct {
	// Command is an external allocator; empty uses the built-in git allocator
	Command []string `yaml:"command,omitempty" json:"command,omitempty"`
	// WorktreeDir is where the built-in allocator places worktrees
	WorktreeDir string `yaml:"worktreeDir,omitempty" json:"worktreeDir,omitempty"`
	// NamePrefix prefixes generated worktree names
	NamePrefix string `yaml:"namePrefix,omitempty" json:"namePrefix,omitempty"`
}

// SessionConfig holds tmux session naming
type SessionConfig struct {
	EphemeralPrefix string `yaml:"ephemeralPrefix" json:"ephemeralPrefix"`
	NamedPrefix     string `yaml:"namedPrefix" json:"namedPrefix"`
}

// CleanupConfig holds defaults for the create flags
type CleanupConfig struct {
	AutoCleanup    bool `yaml:"autoCleanup" json:"autoCleanup"`
	OnSessionClose bool `yaml:"onSessionClose" json:"onSessionClose"`
}

const (
	DefaultNamePrefix      = "eph"
	DefaultEphemeralPrefix = "eph_"
	DefaultNamedPrefix     = "wt_"
)

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	return &Config{
		Allocator: AllocatorConfig{
			NamePrefix: DefaultNamePrefix,
		},
		Session: SessionConfig{
			EphemeralPrefix: DefaultEphemeralPrefix,
			NamedPrefix:     DefaultNamedPrefix,
		},
	}
}

// applyDefaults fills unset fields
func applyDefaults(cfg *Config) {
	if cfg.Allocator.NamePrefix == "" {
		cfg.Allocator.NamePrefix = DefaultNamePrefix
	}
	if cfg.Session.EphemeralPrefix == "" {
		cfg.Session.EphemeralPrefix = DefaultEphemeralPrefix
	}
	if cfg.Session.NamedPrefix == "" {
		cfg.Session.NamedPrefix = DefaultNamedPrefix
	}
}
