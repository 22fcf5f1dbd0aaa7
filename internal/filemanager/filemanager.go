// Package filemanager provides process-safe YAML state files guarded by a
// sidecar flock, with atomic replacement on write.
package filemanager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// ErrLockTimeout is returned when acquiring a file lock times out
var ErrLockTimeout = errors.New("timeout acquiring file lock")

const retryDelay = 100 * time.Millisecond

// UpdateFunc is a function that modifies data in-place
type UpdateFunc[T any] func(data *T) error

// Manager serializes access to YAML files across processes.
//
// Locks are taken on path+".lock" rather than the data file itself, so the
// data file can be replaced by rename while the lock is held.
type Manager[T any] struct {
	lockTimeout time.Duration
}

// NewManager creates a new file manager with default settings
func NewManager[T any]() *Manager[T] {
	return &Manager[T]{
		lockTimeout: 5 * time.Second,
	}
}

// NewManagerWithTimeout creates a new file manager with custom lock timeout
func NewManagerWithTimeout[T any](timeout time.Duration) *Manager[T] {
	return &Manager[T]{
		lockTimeout: timeout,
	}
}

// LockPath returns the sidecar lock file used for path.
func LockPath(path string) string {
	return path + ".lock"
}

// Read loads path under a shared lock. A missing file returns an error
// satisfying os.IsNotExist.
func (m *Manager[T]) Read(ctx context.Context, path string) (*T, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	lock, err := m.acquire(ctx, path, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	return decode[T](path)
}

// Write replaces path with data under an exclusive lock.
func (m *Manager[T]) Write(ctx context.Context, path string, data *T) error {
	lock, err := m.acquire(ctx, path, true)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	return encode(path, data)
}

// Update runs fn against the current contents of path and writes the result
// back, all while holding the exclusive lock. A missing file starts from the
// zero value of T. If fn returns an error nothing is written.
func (m *Manager[T]) Update(ctx context.Context, path string, fn UpdateFunc[T]) error {
	lock, err := m.acquire(ctx, path, true)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	data, err := decode[T](path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		data = new(T)
	}

	if err := fn(data); err != nil {
		return fmt.Errorf("update function failed: %w", err)
	}

	return encode(path, data)
}

// Delete removes path under an exclusive lock. Missing files are not an error.
func (m *Manager[T]) Delete(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat file: %w", err)
	}

	lock, err := m.acquire(ctx, path, true)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

func (m *Manager[T]) acquire(ctx context.Context, path string, exclusive bool) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	lock := flock.New(LockPath(path))

	lockCtx, cancel := context.WithTimeout(ctx, m.lockTimeout)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = lock.TryLockContext(lockCtx, retryDelay)
	} else {
		locked, err = lock.TryRLockContext(lockCtx, retryDelay)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrLockTimeout
	}
	return lock, nil
}

func decode[T any](path string) (*T, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var result T
	if err := yaml.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	return &result, nil
}

func encode[T any](path string, data *T) error {
	raw, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal yaml: %w", err)
	}

	// Write atomically using temp file + rename
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
