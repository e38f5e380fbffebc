package app

import (
	"context"
	"encoding/json"
	"testing"

	"invlearn/internal/convergence"
	"invlearn/internal/testkit"
	"invlearn/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImport(t *testing.T) {
	kit := testkit.NewTestKit()
	fake := &testkit.FakeClassifier{Weights: []float64{2}}
	svc := newService(t, kit, fake, kit.Config())

	h := testkit.NewScriptedHarness(1, testkit.SingleState(nonNegative))
	learned, err := svc.Learn(context.Background(), Job{Program: "half_line", Variables: []string{"x"}, Harness: h})
	require.NoError(t, err)

	// a result that went through a JSON file
	data, err := json.Marshal(learned)
	require.NoError(t, err)
	var r Result
	require.NoError(t, json.Unmarshal(data, &r))

	target := testkit.NewTestKit()
	require.NoError(t, Import(context.Background(), &r, target.Repository(), target.Sessions()))

	record, err := target.Sessions().GetSession(context.Background(), r.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusConverged, record.Status)
	assert.Equal(t, "migration", record.Metadata["source"])
	assert.Equal(t, r.Readable, record.Readable)

	stored, err := target.Repository().ListByProgram(context.Background(), "half_line", 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "x >= 0", stored[0].Normalized)
	assert.Equal(t, r.Iterations, stored[0].Iterations)

	t.Run("failed result stores only the session", func(t *testing.T) {
		failed := Result{SessionID: "f-1", Program: "half_line", Status: convergence.Failed, Iterations: 3}
		kit := testkit.NewTestKit()
		require.NoError(t, Import(context.Background(), &failed, kit.Repository(), kit.Sessions()))
		assert.Equal(t, 0, kit.Repository().Len())
		record, err := kit.Sessions().GetSession(context.Background(), "f-1")
		require.NoError(t, err)
		assert.Equal(t, models.SessionStatusFailed, record.Status)
	})

	t.Run("missing session id", func(t *testing.T) {
		assert.Error(t, Import(context.Background(), &Result{}, nil, nil))
	})
}
