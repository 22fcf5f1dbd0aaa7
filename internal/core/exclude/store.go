// Package exclude manages the repository-wide ignore patterns stored in
// $GIT_COMMON_DIR/info/exclude, which apply to every worktree.
package exclude

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/gofrs/flock"
)

// CommonDirResolver locates the git directory shared by all worktrees
type CommonDirResolver interface {
	CommonDir(ctx context.Context) (string, error)
}

// AddResult reports which patterns were appended
type AddResult struct {
	Added      []string
	Duplicates []string
}

// Match describes the pattern that decided a Check
type Match struct {
	Ignored bool
	Pattern string
}

// Store reads and appends exclude patterns
type Store struct {
	resolver    CommonDirResolver
	lockTimeout time.Duration
}

// NewStore creates a store. The file location is resolved on every call.
func NewStore(resolver CommonDirResolver) *Store {
	return &Store{
		resolver:    resolver,
		lockTimeout: 5 * time.Second,
	}
}

// Path returns the exclude file location
func (s *Store) Path(ctx context.Context) (string, error) {
	dir, err := s.resolver.CommonDir(ctx)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "info", "exclude"), nil
}

// List returns the patterns in file order, skipping blank lines and comments
func (s *Store) List(ctx context.Context) ([]string, error) {
	path, err := s.Path(ctx)
	if err != nil {
		return nil, err
	}

	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	var patterns []string
	for _, line := range lines {
		if isPattern(line) {
			patterns = append(patterns, line)
		}
	}
	return patterns, nil
}

// Add appends patterns not already present as an exact line. Duplicates,
// including repeats within patterns, are reported and not inserted.
func (s *Store) Add(ctx context.Context, patterns []string) (*AddResult, error) {
	path, err := s.Path(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create info directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("timeout locking %s", path)
	}
	defer func() { _ = lock.Unlock() }()

	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(lines))
	for _, line := range lines {
		existing[line] = true
	}

	result := &AddResult{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if existing[p] {
			result.Duplicates = append(result.Duplicates, p)
			continue
		}
		existing[p] = true
		result.Added = append(result.Added, p)
	}

	if len(result.Added) == 0 {
		return result, nil
	}
	if err := appendLines(path, result.Added); err != nil {
		return nil, err
	}
	return result, nil
}

// Check reports whether relPath (slash separated, relative to a worktree
// root) is ignored by the stored patterns. The last matching pattern wins.
func (s *Store) Check(ctx context.Context, relPath string, isDir bool) (Match, error) {
	patterns, err := s.List(ctx)
	if err != nil {
		return Match{}, err
	}

	parts := strings.Split(strings.Trim(filepath.ToSlash(relPath), "/"), "/")
	var m Match
	for _, raw := range patterns {
		switch gitignore.ParsePattern(raw, nil).Match(parts, isDir) {
		case gitignore.Exclude:
			m = Match{Ignored: true, Pattern: raw}
		case gitignore.Include:
			m = Match{Ignored: false, Pattern: raw}
		}
	}
	return m, nil
}

// Edit ensures the file exists and hands it to editor
func (s *Store) Edit(ctx context.Context, editor func(path string) error) error {
	path, err := s.Path(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create info directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	_ = f.Close()

	return editor(path)
}

func isPattern(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed != "" && !strings.HasPrefix(trimmed, "#")
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines, scanner.Err()
}

func appendLines(path string, lines []string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if info, err := f.Stat(); err == nil && info.Size() > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err == nil && last[0] != '\n' {
			buf.WriteByte('\n')
		}
	}
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
