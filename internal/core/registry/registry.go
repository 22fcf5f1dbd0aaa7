// Package registry persists the lifecycle state of twig-managed worktrees
// so that later invocations (promotion, cleanup hooks, listing) can tell
// ephemeral worktrees from named ones.
package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aki/twig/internal/core/worktree"
	"github.com/aki/twig/internal/filemanager"
)

const (
	// Dir is the twig directory inside the git common dir
	Dir = "twig"
	// FileName is the registry file name
	FileName = "worktrees.yaml"

	fileVersion = 1
)

// Record is the persisted view of one worktree
type Record struct {
	Path       string                  `yaml:"path"`
	Branch     string                  `yaml:"branch"`
	State      worktree.LifecycleState `yaml:"state"`
	Session    string                  `yaml:"session,omitempty"`
	CreatedAt  time.Time               `yaml:"createdAt"`
	PromotedAt *time.Time              `yaml:"promotedAt,omitempty"`
}

// Worktree converts the record into the domain type
func (r Record) Worktree() worktree.Worktree {
	return worktree.Worktree{Path: r.Path, Branch: r.Branch, State: r.State}
}

// File is the on-disk layout
type File struct {
	Version   int      `yaml:"version"`
	Worktrees []Record `yaml:"worktrees"`
}

// Registry reads and writes worktree records for one repository
type Registry struct {
	path string
	fm   *filemanager.Manager[File]
}

// Open returns the registry stored under commonDir
func Open(commonDir string) *Registry {
	return &Registry{
		path: filepath.Join(commonDir, Dir, FileName),
		fm:   filemanager.NewManager[File](),
	}
}

// Path returns the registry file location
func (r *Registry) Path() string {
	return r.path
}

// Put inserts or replaces the record for rec.Path
func (r *Registry) Put(ctx context.Context, rec Record) error {
	if rec.Path == "" {
		return fmt.Errorf("record path is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.Path = canonical(rec.Path)

	return r.update(ctx, func(f *File) error {
		if i := indexOf(f, rec.Path); i >= 0 {
			f.Worktrees[i] = rec
			return nil
		}
		f.Worktrees = append(f.Worktrees, rec)
		return nil
	})
}

// Get returns the record for path
func (r *Registry) Get(ctx context.Context, path string) (Record, bool, error) {
	f, err := r.read(ctx)
	if err != nil {
		return Record{}, false, err
	}
	if i := indexOf(f, canonical(path)); i >= 0 {
		return f.Worktrees[i], true, nil
	}
	return Record{}, false, nil
}

// Promote marks the record for path as Named under newBranch. A worktree not
// yet registered (created outside twig) gets a fresh record.
func (r *Registry) Promote(ctx context.Context, path, newBranch, session string) error {
	path = canonical(path)
	now := time.Now()

	return r.update(ctx, func(f *File) error {
		i := indexOf(f, path)
		if i < 0 {
			f.Worktrees = append(f.Worktrees, Record{Path: path, CreatedAt: now})
			i = len(f.Worktrees) - 1
		}
		rec := &f.Worktrees[i]
		rec.Branch = newBranch
		rec.State = worktree.StateNamed
		rec.Session = session
		rec.PromotedAt = &now
		return nil
	})
}

// Remove drops the record for path. Unknown paths are ignored.
func (r *Registry) Remove(ctx context.Context, path string) error {
	path = canonical(path)
	return r.update(ctx, func(f *File) error {
		if i := indexOf(f, path); i >= 0 {
			f.Worktrees = append(f.Worktrees[:i], f.Worktrees[i+1:]...)
		}
		return nil
	})
}

// List returns all records ordered by creation time
func (r *Registry) List(ctx context.Context) ([]Record, error) {
	f, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	out := append([]Record(nil), f.Worktrees...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Reconcile drops records whose worktree no longer exists according to
// exists, returning the removed records.
func (r *Registry) Reconcile(ctx context.Context, exists func(path string) bool) ([]Record, error) {
	var removed []Record
	err := r.update(ctx, func(f *File) error {
		kept := f.Worktrees[:0]
		for _, rec := range f.Worktrees {
			if exists(rec.Path) {
				kept = append(kept, rec)
				continue
			}
			removed = append(removed, rec)
		}
		f.Worktrees = kept
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// IsNamed reports whether path is registered as a Named worktree
func (r *Registry) IsNamed(ctx context.Context, path string) (bool, error) {
	rec, ok, err := r.Get(ctx, path)
	if err != nil || !ok {
		return false, err
	}
	return rec.State == worktree.StateNamed, nil
}

func (r *Registry) read(ctx context.Context) (*File, error) {
	f, err := r.fm.Read(ctx, r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{Version: fileVersion}, nil
		}
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	return f, nil
}

func (r *Registry) update(ctx context.Context, fn func(*File) error) error {
	err := r.fm.Update(ctx, r.path, func(f *File) error {
		f.Version = fileVersion
		return fn(f)
	})
	if err != nil {
		return fmt.Errorf("failed to update registry: %w", err)
	}
	return nil
}

func indexOf(f *File, path string) int {
	for i, rec := range f.Worktrees {
		if canonical(rec.Path) == path {
			return i
		}
	}
	return -1
}

// canonical resolves symlinks so a worktree has a single key however it was
// reached. A path that no longer exists is resolved through its nearest
// existing parent.
func canonical(path string) string {
	path = filepath.Clean(path)
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path
	}
	return filepath.Join(canonical(parent), filepath.Base(path))
}
