package config

import (
	"fmt"
	"strings"
)

// ValidateConfig validates the entire configuration
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	if err := ValidateSessionConfig(&config.Session); err != nil {
		return fmt.Errorf("invalid session configuration: %w", err)
	}

	for i, arg := range config.Allocator.Command {
		if i == 0 && strings.TrimSpace(arg) == "" {
			return fmt.Errorf("invalid allocator configuration: command must not start with an empty argument")
		}
	}

	return nil
}

// ValidateSessionConfig checks that both prefixes are usable and distinct
func ValidateSessionConfig(s *SessionConfig) error {
	if s.EphemeralPrefix == "" || s.NamedPrefix == "" {
		return fmt.Errorf("session prefixes must not be empty")
	}
	if s.EphemeralPrefix == s.NamedPrefix {
		return fmt.Errorf("ephemeralPrefix and namedPrefix must differ")
	}
	for _, p := range []string{s.EphemeralPrefix, s.NamedPrefix} {
		// tmux rewrites these characters in session names
		if strings.ContainsAny(p, ".:") {
			return fmt.Errorf("prefix %q must not contain '.' or ':'", p)
		}
	}
	return nil
}
