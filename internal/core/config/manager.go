// Package config provides configuration management for twig.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// Dir is the twig directory inside the git common dir
	Dir = "twig"
	// ConfigFile is the filename for the twig configuration
	ConfigFile = "config.yaml"
	// EnvConfig overrides the configuration file location
	EnvConfig = "TWIG_CONFIG"
)

// ResolvePath returns the configuration path for a repository whose git
// common dir is commonDir, honoring TWIG_CONFIG.
func ResolvePath(commonDir string) string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return filepath.Join(commonDir, Dir, ConfigFile)
}

// Manager handles twig configuration
type Manager struct {
	configPath string
}

// NewManager creates a configuration manager for the file at path
func NewManager(path string) *Manager {
	return &Manager{configPath: path}
}

// Load reads the configuration from disk. A missing file yields DefaultConfig.
func (m *Manager) Load() (*Config, error) {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.configPath, err)
	}
	return cfg, nil
}

// Parse validates raw YAML against the schema and decodes it
func Parse(data []byte) (*Config, error) {
	if err := ValidateYAML(data); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to disk
func (m *Manager) Save(config *Config) error {
	if err := ValidateConfig(config); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Exists reports whether the configuration file is present
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.configPath)
	return err == nil
}

// GetConfigPath returns the configuration file path
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// WorktreeDir returns the directory the built-in allocator uses. mainRoot is
// the top level of the repository's main worktree.
func (c *Config) WorktreeDir(mainRoot string) string {
	dir := c.Allocator.WorktreeDir
	if dir == "" {
		return filepath.Join(filepath.Dir(mainRoot), filepath.Base(mainRoot)+".worktrees")
	}
	if !filepath.IsAbs(dir) {
		return filepath.Join(mainRoot, dir)
	}
	return dir
}
