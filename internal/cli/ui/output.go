package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aki/twig/internal/core/registry"
	"github.com/aki/twig/internal/core/transfer"
	"github.com/aki/twig/internal/core/worktree"
)

// Output destinations, replaceable in tests
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// Print functions for consistent output

func Error(format string, args ...interface{}) {
	fmt.Fprintf(Stderr, "%s %s\n", ErrorIcon, ErrorStyle.Render(fmt.Sprintf(format, args...)))
}

func Success(format string, args ...interface{}) {
	fmt.Fprintf(Stdout, "%s %s\n", SuccessIcon, SuccessStyle.Render(fmt.Sprintf(format, args...)))
}

func Info(format string, args ...interface{}) {
	fmt.Fprintf(Stdout, "%s %s\n", InfoIcon, InfoStyle.Render(fmt.Sprintf(format, args...)))
}

// Warning goes to stderr so that stdout stays parseable
func Warning(format string, args ...interface{}) {
	fmt.Fprintf(Stderr, "%s %s\n", WarningIcon, WarningStyle.Render(fmt.Sprintf(format, args...)))
}

// OutputLine prints a plain line
func OutputLine(format string, args ...interface{}) {
	fmt.Fprintf(Stdout, format+"\n", args...)
}

// PrintKeyValue prints an aligned "key: value" detail line
func PrintKeyValue(key string, value interface{}) {
	fmt.Fprintf(Stdout, "   %s %v\n", DimStyle.Render(fmt.Sprintf("%-9s", key+":")), value)
}

// StateLabel renders a lifecycle state
func StateLabel(s worktree.LifecycleState) string {
	switch s {
	case worktree.StateNamed:
		return NamedStyle.Render(string(s))
	case worktree.StateEphemeral:
		return EphemeralStyle.Render(string(s))
	default:
		return DimStyle.Render("-")
	}
}

// WorktreeRow is one line of `twig list`
type WorktreeRow struct {
	Branch    string                  `json:"branch"`
	Path      string                  `json:"path"`
	State     worktree.LifecycleState `json:"state,omitempty"`
	Session   string                  `json:"session,omitempty"`
	CreatedAt time.Time               `json:"createdAt,omitempty"`
	Current   bool                    `json:"current"`
}

// RowFromRecord converts a registry record
func RowFromRecord(rec registry.Record) WorktreeRow {
	return WorktreeRow{
		Branch:    rec.Branch,
		Path:      rec.Path,
		State:     rec.State,
		Session:   rec.Session,
		CreatedAt: rec.CreatedAt,
	}
}

// PrintWorktreeList displays worktrees using a table
func PrintWorktreeList(rows []WorktreeRow) {
	if len(rows) == 0 {
		Info("No worktrees found")
		return
	}

	tbl := NewTable("BRANCH", "STATE", "SESSION", "AGE", "PATH")
	for _, r := range rows {
		branch := r.Branch
		if r.Current {
			branch = "* " + branch
		}
		session := r.Session
		if session == "" {
			session = "-"
		}
		age := "-"
		if !r.CreatedAt.IsZero() {
			age = FormatDuration(time.Since(r.CreatedAt))
		}
		tbl.AddRow(branch, StateLabel(r.State), session, age, r.Path)
	}

	PrintSectionHeader(WorktreeIcon, "Worktrees", len(rows))
	tbl.Print()
	fmt.Fprintln(Stdout)
}

// PrintWorktree displays a single worktree
func PrintWorktree(wt worktree.Worktree, session string) {
	fmt.Fprintf(Stdout, "%s %s %s\n", WorktreeIcon, BoldStyle.Render(wt.Branch), StateLabel(wt.State))
	PrintKeyValue("Path", wt.Path)
	if session != "" {
		PrintKeyValue("Session", session)
	}
}

// PrintCopyReport displays the outcome of each copied item
func PrintCopyReport(report *transfer.Report) {
	if len(report.Entries) == 0 {
		Info("Nothing to copy")
		return
	}

	for _, e := range report.Entries {
		if e.Err != nil {
			Warning("%v", e.Err)
			continue
		}
		kind := "file"
		if e.Dir {
			kind = "dir "
		}
		OutputLine("  %s %s", DimStyle.Render(kind), e.Item)
	}

	copied := len(report.Copied())
	if failed := len(report.Failed()); failed > 0 {
		Warning("Copied %d item(s) to %s, %d skipped", copied, report.Target, failed)
		return
	}
	Success("Copied %d item(s) to %s", copied, report.Target)
}

// FormatDuration formats a duration into a human-readable string
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "< 1m"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
