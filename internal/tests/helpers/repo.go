// Package helpers provides git repository fixtures for tests.
package helpers

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// CreateTestRepo creates a temporary git repository with one commit on main
func CreateTestRepo(t *testing.T) string {
	t.Helper()

	// Clear git environment variables for test isolation
	for _, key := range []string{"GIT_DIR", "GIT_WORK_TREE", "GIT_INDEX_FILE"} {
		if value, ok := os.LookupEnv(key); ok {
			t.Setenv(key, value)
			os.Unsetenv(key)
		}
	}

	// EvalSymlinks so paths compare equal to what git reports on macOS (/private/var)
	tmpDir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}
	repoDir := filepath.Join(tmpDir, "repo")
	if err := os.MkdirAll(repoDir, 0o755); err != nil {
		t.Fatalf("Failed to create repo dir: %v", err)
	}

	if _, err := runGit(repoDir, "init", "--initial-branch=main"); err != nil {
		// Fallback for older git versions
		if out, err := runGit(repoDir, "init"); err != nil {
			t.Fatalf("Failed to init git repo: %v, output: %s", err, out)
		}
	}

	Git(t, repoDir, "config", "user.email", "test@example.com")
	Git(t, repoDir, "config", "user.name", "Test User")
	Git(t, repoDir, "config", "commit.gpgsign", "false")

	WriteFile(t, repoDir, "README.md", "# Test Repository\n")
	Git(t, repoDir, "add", "README.md")
	Git(t, repoDir, "commit", "-m", "Initial commit")
	_, _ = runGit(repoDir, "branch", "-M", "main")

	return repoDir
}

// AddWorktree adds a linked worktree on a new branch and returns its path.
// Worktrees are placed next to the repository so the repository status stays clean.
func AddWorktree(t *testing.T, repoDir, name string) string {
	t.Helper()

	path := filepath.Join(filepath.Dir(repoDir), "worktrees", name)
	Git(t, repoDir, "worktree", "add", "-b", name, path)
	return path
}

// SymlinkedRepo returns repoDir as reached through a symlink to its parent,
// in a temp dir that is not resolved
func SymlinkedRepo(t *testing.T, repoDir string) string {
	t.Helper()

	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(filepath.Dir(repoDir), link); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}
	return filepath.Join(link, filepath.Base(repoDir))
}

// Git runs a git command in dir and fails the test on error
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()

	out, err := runGit(dir, args...)
	if err != nil {
		t.Fatalf("git %s failed: %v, output: %s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(out)
}

// WriteFile writes content to a path relative to dir, creating parent directories
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
	return path
}

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}
