package tmux

import (
	"fmt"
	"strconv"
	"strings"
)

// Quote returns s as a double-quoted tmux command argument. Backslashes,
// double quotes and '$' are escaped so the parser returns s unchanged.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\', '"', '$':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// Unquote reverses Quote. Single-quoted arguments lose their quotes;
// anything else is returned as is.
func Unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}

	var b strings.Builder
	inner := s[1 : len(s)-1]
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
		}
		b.WriteByte(inner[i])
	}
	return b.String()
}

// hookName returns the array option name for one entry of a hook
func hookName(event string, index int) string {
	return fmt.Sprintf("%s[%d]", event, index)
}

// parseHookLine splits a show-hooks line such as
// `session-closed[3] run-shell "true"` into its event, index and command.
// Lines without an index or a command are reported as not ok.
func parseHookLine(line string) (event string, index int, command string, ok bool) {
	name, command, found := strings.Cut(strings.TrimSpace(line), " ")
	command = strings.TrimSpace(command)
	if !found || command == "" {
		return "", 0, "", false
	}
	event, rest, found := strings.Cut(name, "[")
	if !found || !strings.HasSuffix(rest, "]") {
		return "", 0, "", false
	}
	index, err := strconv.Atoi(strings.TrimSuffix(rest, "]"))
	if err != nil {
		return "", 0, "", false
	}
	return event, index, command, true
}
