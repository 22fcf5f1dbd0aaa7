package mcp

import (
	"strings"

	"github.com/aki/twig/internal/core/worktree"
)

// ErrorWithSuggestions represents an error with tool suggestions
type ErrorWithSuggestions struct {
	Message     string
	Suggestions []string
}

// Error returns the error message with suggestions
func (e *ErrorWithSuggestions) Error() string {
	if len(e.Suggestions) == 0 {
		return e.Message
	}

	var sb strings.Builder
	sb.WriteString(e.Message)
	sb.WriteString("\n\nDid you mean to use one of these tools instead?\n")
	for _, suggestion := range e.Suggestions {
		sb.WriteString("  - ")
		sb.WriteString(suggestion)
		sb.WriteString("\n")
	}
	return sb.String()
}

// NewErrorWithSuggestions creates a new error with tool suggestions
func NewErrorWithSuggestions(message string, suggestions ...string) error {
	return &ErrorWithSuggestions{
		Message:     message,
		Suggestions: suggestions,
	}
}

// TargetNotFoundError suggests listing worktrees when a copy target is unknown
func TargetNotFoundError(err *worktree.TargetNotFoundError) error {
	return NewErrorWithSuggestions(
		err.Error(),
		"worktree_list - List the worktrees and their branches",
		"worktree_create - Create a worktree to copy into",
	)
}
