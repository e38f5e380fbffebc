package memory

import (
	"testing"

	"invlearn/domain/core"
	"invlearn/domain/trace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceStore_AppendAndCount(t *testing.T) {
	s := NewTraceStore(2)

	require.NoError(t, s.Append(trace.Positive, [][]float64{{1, 2}, {3, 4}}))
	require.NoError(t, s.Append(trace.Positive, [][]float64{{5, 6}}))
	require.NoError(t, s.Append(trace.Negative, [][]float64{{-1, -1}}))
	require.NoError(t, s.Append(trace.Question, nil))

	assert.Equal(t, 3, s.PositiveCount())
	assert.Equal(t, 1, s.NegativeCount())
	assert.Equal(t, 2, s.TraceCount(trace.Positive))
	assert.Equal(t, 1, s.TraceCount(trace.Question))
	assert.Equal(t, 0, s.StateCount(trace.Question))

	start, end, err := s.TraceRange(trace.Positive, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, start)
	assert.Equal(t, 3, end)

	p, err := s.PointAt(trace.Positive, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6}, p)
}

func TestTraceStore_Errors(t *testing.T) {
	s := NewTraceStore(2)

	err := s.Append(trace.Positive, [][]float64{{1}})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	err = s.Append(trace.Label(7), nil)
	assert.ErrorIs(t, err, core.ErrUnknownLabel)

	_, err = s.PointAt(trace.Negative, 0)
	assert.ErrorIs(t, err, core.ErrIndexOutOfRange)

	_, _, err = s.TraceRange(trace.CounterExample, 0)
	assert.ErrorIs(t, err, core.ErrIndexOutOfRange)
}

func TestTraceStore_AppendCopiesStates(t *testing.T) {
	s := NewTraceStore(1)
	state := []float64{4}
	require.NoError(t, s.Append(trace.Positive, [][]float64{state}))
	state[0] = 99

	p, err := s.PointAt(trace.Positive, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{4}, p)
}

func TestTraceStore_ResetAndReadTraces(t *testing.T) {
	s := NewTraceStore(1)
	require.NoError(t, s.AppendTrace(trace.Trace{Label: trace.Question, States: []trace.State{{5}, {3}, {-1}}}))
	require.NoError(t, s.AppendTrace(trace.Trace{Label: trace.Question, States: []trace.State{{2}}}))

	traces, err := s.Traces(trace.Question)
	require.NoError(t, err)
	require.Len(t, traces, 2)
	assert.Equal(t, []trace.State{{5}, {3}, {-1}}, traces[0].States)
	assert.Equal(t, trace.Question, traces[1].Label)

	s.Reset()
	assert.Equal(t, 0, s.TraceCount(trace.Question))
	assert.Equal(t, 0, s.PositiveCount())
}
