package migration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchema_Idempotent(t *testing.T) {
	all := steps()
	assert.Len(t, all, 3)
	for _, s := range all {
		assert.Contains(t, s.sql, "IF NOT EXISTS", s.name)
	}
	for _, idx := range indexes {
		assert.True(t, strings.HasPrefix(idx, "CREATE INDEX IF NOT EXISTS"), idx)
	}
}

func TestSchema_ColumnsMatchRepositories(t *testing.T) {
	var invariants, sessions string
	for _, s := range steps() {
		switch {
		case strings.Contains(s.sql, "TABLE IF NOT EXISTS invariants"):
			invariants = s.sql
		case strings.Contains(s.sql, "TABLE IF NOT EXISTS learning_sessions"):
			sessions = s.sql
		}
	}
	for _, col := range []string{"session_id", "variables", "degree", "coefficients", "normalized", "soundness"} {
		assert.Contains(t, invariants, col)
	}
	for _, col := range []string{"status", "readable", "error_message", "metadata", "completed_at"} {
		assert.Contains(t, sessions, col)
	}
}

func TestRunner_Version(t *testing.T) {
	assert.Equal(t, "1.0.0", NewRunner().Version())
}
