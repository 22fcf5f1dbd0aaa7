package worktree

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAllocationFailed is returned when the allocator fails or yields no path
	ErrAllocationFailed = errors.New("worktree allocation failed")
	// ErrSessionNotFound is returned when a bound session no longer exists
	ErrSessionNotFound = errors.New("session not found")
	// ErrNotInWorktree is returned when the current branch cannot be resolved
	ErrNotInWorktree = errors.New("not in a worktree")
	// ErrBranchAlreadyExists is returned when the promotion target branch exists
	ErrBranchAlreadyExists = errors.New("branch already exists")
	// ErrBranchCreationFailed is returned when the promotion branch cannot be created
	ErrBranchCreationFailed = errors.New("branch creation failed")
	// ErrCheckoutFailed is returned when switching to the promoted branch fails
	ErrCheckoutFailed = errors.New("checkout failed")
	// ErrTargetNotFound is returned when a copy target has no worktree
	ErrTargetNotFound = errors.New("target worktree not found")
	// ErrItemNotFound is reported per copy item that does not exist
	ErrItemNotFound = errors.New("item not found")
	// ErrInvalidName is returned when a derived or requested name is not usable
	ErrInvalidName = errors.New("invalid name")
	// ErrAlreadyNamed is returned when promoting a worktree that was already promoted
	ErrAlreadyNamed = errors.New("worktree already promoted")
)

// TargetNotFoundError carries the known worktrees so the caller can pick a valid target
type TargetNotFoundError struct {
	Branch string
	Known  []string
}

func (e *TargetNotFoundError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("no worktree for branch %q", e.Branch)
	}
	return fmt.Sprintf("no worktree for branch %q (known: %s)", e.Branch, strings.Join(e.Known, ", "))
}

// Unwrap allows errors.Is(err, ErrTargetNotFound)
func (e *TargetNotFoundError) Unwrap() error {
	return ErrTargetNotFound
}

// ItemError describes the failure of a single copy item
type ItemError struct {
	Item string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Item, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
