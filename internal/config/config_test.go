package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"invlearn/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Learning.Precision)
	assert.Equal(t, 512, cfg.Learning.MaxIterations)
	assert.Equal(t, 16, cfg.Learning.InitialRuns)
	assert.Equal(t, 4, cfg.Learning.RandomRuns)
	assert.Equal(t, 10000, cfg.Learning.TrainingCapacity)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("LEARN_MAX_ITERATIONS", "32")
	t.Setenv("SVM_C", "12.5")
	t.Setenv("LEARN_TIMEOUT", "30s")
	t.Setenv("DATABASE_URL", "postgres://localhost/invlearn")
	t.Setenv("LEARN_PRECISION", "not-a-number")
	t.Setenv("ORACLE_SLACK", "1e-4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Learning.MaxIterations)
	assert.Equal(t, 12.5, cfg.Learning.SolverC)
	assert.Equal(t, 30*time.Second, cfg.Learning.Timeout)
	assert.Equal(t, 3, cfg.Learning.Precision)
	assert.Equal(t, 1e-4, cfg.Learning.OracleSlack)
	assert.True(t, cfg.Database.Enabled())
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("LEARN_MIN_INPUT", "10")
	t.Setenv("LEARN_MAX_INPUT", "-10")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestParseSessions(t *testing.T) {
	batch := []byte(`
sessions:
  - program: ex1
    degree: 1
    min: -50
    max: 50
  - program: substring1
    variables: [i, k]
`)
	sessions, err := ParseSessions(batch)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "ex1", sessions[0].Program)
	assert.Equal(t, -50, *sessions[0].Min)
	assert.Equal(t, 1, sessions[1].Degree)
	assert.Equal(t, []string{"i", "k"}, sessions[1].Variables)

	single, err := ParseSessions([]byte("program: count_up\ndegree: 2\n"))
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, 2, single[0].Degree)

	_, err = ParseSessions([]byte("degree: 2\n"))
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, err = ParseSessions([]byte("program: ex1\nmin: 5\nmax: 1\n"))
	assert.Error(t, err)
}

func TestLoadSessionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("program: ex1\n"), 0o600))

	sessions, err := LoadSessionFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ex1", sessions[0].Program)

	_, err = LoadSessionFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
