package tmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", `"plain"`},
		{`say "hi"`, `"say \"hi\""`},
		{`$HOME\x`, `"\$HOME\\x"`},
		{"it's", `"it's"`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Quote(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, Unquote(got))
		})
	}

	assert.Equal(t, "as is", Unquote("'as is'"))
	assert.Equal(t, "bare", Unquote("bare"))
}

func TestParseHookLine(t *testing.T) {
	event, index, command, ok := parseHookLine(`session-closed[1003] if-shell -F "#{==:#{hook_session},\$3}" "run-shell -b true"`)
	assert.True(t, ok)
	assert.Equal(t, SessionClosedEvent, event)
	assert.Equal(t, 1003, index)
	assert.Contains(t, command, "if-shell")

	for _, line := range []string{"session-closed", "session-closed run-shell true", "session-closed[x] true", ""} {
		_, _, _, ok := parseHookLine(line)
		assert.False(t, ok, line)
	}
}
