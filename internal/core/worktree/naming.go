package worktree

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// BranchFromPath derives the branch name of an allocated worktree from its final path segment.
func BranchFromPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty worktree path", ErrInvalidName)
	}

	base := filepath.Base(filepath.Clean(trimmed))
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: no final segment in %q", ErrInvalidName, path)
	}
	if strings.ContainsAny(base, `/\`) {
		return "", fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, base)
	}

	if err := ValidateBranchName(base); err != nil {
		return "", err
	}
	return base, nil
}

// ValidateBranchName applies the subset of git's ref-format rules that matter for
// branches created or derived by twig.
func ValidateBranchName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty branch name", ErrInvalidName)
	}
	if name == "@" {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("%w: %q starts with '-'", ErrInvalidName, name)
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return fmt.Errorf("%w: %q starts or ends with '/'", ErrInvalidName, name)
	}
	if strings.HasSuffix(name, ".") || strings.HasSuffix(name, ".lock") {
		return fmt.Errorf("%w: %q has a forbidden suffix", ErrInvalidName, name)
	}
	for _, seq := range []string{"..", "@{", "//"} {
		if strings.Contains(name, seq) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, seq)
		}
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) || strings.ContainsRune(`~^:?*[\`, r) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, r)
		}
	}
	for _, component := range strings.Split(name, "/") {
		if strings.HasPrefix(component, ".") {
			return fmt.Errorf("%w: component %q starts with '.'", ErrInvalidName, component)
		}
	}
	return nil
}

// SessionName derives the multiplexer session name for a branch.
// tmux rewrites '.' and ':' in session names, so they are replaced up front
// to keep the derived name stable across lookups.
func SessionName(prefix, branch string) string {
	replacer := strings.NewReplacer(".", "_", ":", "_")
	return prefix + replacer.Replace(branch)
}
