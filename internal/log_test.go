package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"ERROR", LogLevelError},
		{"warn", LogLevelWarn},
		{" DEBUG ", LogLevelDebug},
		{"TRACE", LogLevelTrace},
		{"", LogLevelInfo},
		{"verbose", LogLevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLogLevel(tt.in), tt.in)
	}
}

func TestLogger_LevelAndWith(t *testing.T) {
	l := NewLogger(LogLevelWarn)
	assert.Equal(t, LogLevelWarn, l.GetLevel())

	child := l.With("session", "abc")
	assert.Equal(t, LogLevelWarn, child.GetLevel())

	nop := NewNopLogger()
	nop.Info("dropped %d", 1)
	nop.Trace("dropped")
}
