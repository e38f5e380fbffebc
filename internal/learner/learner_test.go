package learner

import (
	"context"
	"errors"
	"testing"

	"invlearn/adapters/memory"
	"invlearn/adapters/svm"
	"invlearn/domain/core"
	"invlearn/domain/equation"
	"invlearn/domain/trace"
	"invlearn/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeWith(t *testing.T, arity int, pos, neg [][]float64) *memory.TraceStore {
	t.Helper()
	s := memory.NewTraceStore(arity)
	for _, p := range pos {
		require.NoError(t, s.Append(trace.Positive, [][]float64{p}))
	}
	for _, n := range neg {
		require.NoError(t, s.Append(trace.Negative, [][]float64{n}))
	}
	return s
}

func TestTrainingSet_IncrementalMatchesBatch(t *testing.T) {
	rounds := []struct {
		pos, neg [][]float64
	}{
		{pos: [][]float64{{1}, {2}}, neg: [][]float64{{-1}}},
		{pos: [][]float64{{3}}, neg: [][]float64{{-2}, {-3}, {-4}}},
		{pos: [][]float64{{4}, {5}, {6}}, neg: nil},
		{pos: nil, neg: [][]float64{{-5}}},
	}

	store := memory.NewTraceStore(1)
	incremental := NewTrainingSet(1)
	pos, neg := 0, 0
	for _, r := range rounds {
		for _, p := range r.pos {
			require.NoError(t, store.Append(trace.Positive, [][]float64{p}))
		}
		for _, n := range r.neg {
			require.NoError(t, store.Append(trace.Negative, [][]float64{n}))
		}
		var err error
		pos, neg, err = incremental.Extend(store, pos, neg)
		require.NoError(t, err)
		assert.Equal(t, incremental.Len(), incremental.Positives()+incremental.Negatives())
	}

	batch := NewTrainingSet(DefaultCapacity)
	_, _, err := batch.Extend(store, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, 6, pos)
	assert.Equal(t, 5, neg)
	assert.Equal(t, batch.Samples(), incremental.Samples())
	assert.GreaterOrEqual(t, incremental.Capacity(), 12)

	for i := 0; i < incremental.Len(); i++ {
		s := incremental.At(i)
		if i < pos {
			assert.Equal(t, 1, s.Label)
			assert.Greater(t, s.Point[0], 0.0)
		} else {
			assert.Equal(t, -1, s.Label)
			assert.Less(t, s.Point[0], 0.0)
		}
	}
}

func TestTrainingSet_ExtendRejectsStaleCounts(t *testing.T) {
	store := storeWith(t, 1, [][]float64{{1}}, [][]float64{{-1}})
	ts := NewTrainingSet(4)

	_, _, err := ts.Extend(store, 1, 0)
	assert.ErrorIs(t, err, core.ErrInvalidTrainingData)

	_, _, err = ts.Extend(store, 0, 0)
	require.NoError(t, err)

	store.Reset()
	_, _, err = ts.Extend(store, 1, 1)
	assert.ErrorIs(t, err, core.ErrInvalidTrainingData)
	assert.Equal(t, 2, ts.Len())
}

func TestClassifier_EndToEndOneDimension(t *testing.T) {
	store := storeWith(t, 1, [][]float64{{5}, {3}}, [][]float64{{-2}, {-7}})
	ts := NewTrainingSet(DefaultCapacity)
	_, _, err := ts.Extend(store, 0, 0)
	require.NoError(t, err)

	c, err := NewClassifier(svm.NewSolver(svm.DefaultConfig()), 1, 1)
	require.NoError(t, err)
	h, err := c.Train(context.Background(), ts)
	require.NoError(t, err)

	acc, err := Accuracy(ts, h)
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)

	m, err := MarginSummary(ts, h)
	require.NoError(t, err)
	assert.Greater(t, m.Min, 0.0)
	assert.GreaterOrEqual(t, m.Mean, m.Min)
}

func TestClassifier_QuadraticFeatures(t *testing.T) {
	// inside the band -2 <= x <= 2 is positive, which needs x^2
	store := storeWith(t, 1,
		[][]float64{{-2}, {-1}, {0}, {1}, {2}},
		[][]float64{{-5}, {-4}, {4}, {5}})
	ts := NewTrainingSet(8)
	_, _, err := ts.Extend(store, 0, 0)
	require.NoError(t, err)

	c, err := NewClassifier(svm.NewSolver(svm.Config{C: 1000, Tolerance: 1e-4, MaxPasses: 20000, Seed: 1}), 1, 2)
	require.NoError(t, err)
	h, err := c.Train(context.Background(), ts)
	require.NoError(t, err)
	assert.Equal(t, 2, h.Degree())

	acc, err := Accuracy(ts, h)
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)
}

func TestClassifier_InvalidTrainingData(t *testing.T) {
	c, err := NewClassifier(svm.NewSolver(svm.DefaultConfig()), 1, 1)
	require.NoError(t, err)

	_, err = c.Train(context.Background(), NewTrainingSet(4))
	assert.ErrorIs(t, err, core.ErrInvalidTrainingData)

	onlyPositive := NewTrainingSet(4)
	_, _, err = onlyPositive.Extend(storeWith(t, 1, [][]float64{{1}}, nil), 0, 0)
	require.NoError(t, err)
	_, err = c.Train(context.Background(), onlyPositive)
	assert.ErrorIs(t, err, core.ErrInvalidTrainingData)
}

type stubModel struct {
	weights  []float64
	bias     float64
	released *int
}

func (m stubModel) Weights() []float64 { return m.weights }
func (m stubModel) Bias() float64      { return m.bias }
func (m stubModel) Release()           { *m.released++ }

type stubSolver struct {
	model ports.Model
	err   error
}

func (s stubSolver) Train(context.Context, *ports.Problem) (ports.Model, error) {
	return s.model, s.err
}

func TestClassifier_ReleasesModelOnEveryPath(t *testing.T) {
	ts := NewTrainingSet(4)
	_, _, err := ts.Extend(storeWith(t, 1, [][]float64{{1}}, [][]float64{{-1}}), 0, 0)
	require.NoError(t, err)

	released := 0
	c, err := NewClassifier(stubSolver{model: stubModel{weights: []float64{1}, released: &released}}, 1, 1)
	require.NoError(t, err)

	_, err = c.Train(context.Background(), ts)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	c.WithConverter(func([]float64, float64, int, int) (*equation.Hyperplane, error) {
		return nil, errors.New("boom")
	})
	_, err = c.Train(context.Background(), ts)
	assert.Error(t, err)
	assert.Equal(t, 2, released)
}

func TestClassifier_WrapsSolverErrors(t *testing.T) {
	ts := NewTrainingSet(4)
	_, _, err := ts.Extend(storeWith(t, 1, [][]float64{{1}}, [][]float64{{-1}}), 0, 0)
	require.NoError(t, err)

	c, err := NewClassifier(stubSolver{err: errors.New("bad parameter")}, 1, 1)
	require.NoError(t, err)
	_, err = c.Train(context.Background(), ts)
	assert.ErrorIs(t, err, core.ErrInvalidTrainingData)
}

func TestCheckQuestionTraces(t *testing.T) {
	xNonNeg := equation.MustFromCoefficients(1, 1, 0, 1)

	tests := []struct {
		name   string
		traces []trace.Trace
		want   Outcome
	}{
		{"leaves the invariant", []trace.Trace{{States: []trace.State{{5}, {3}, {-1}}}}, Rejected(0)},
		{"enters the invariant", []trace.Trace{{States: []trace.State{{-3}, {-1}, {2}}}}, Accepted()},
		{"never holds", []trace.Trace{{States: []trace.State{{-3}, {-4}}}}, Accepted()},
		{"second trace violates", []trace.Trace{
			{States: []trace.State{{1}, {2}}},
			{States: []trace.State{{-1}, {0}, {-2}}},
		}, Rejected(1)},
		{"empty trace", []trace.Trace{{}}, Accepted()},
		{"no traces", nil, Accepted()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckQuestionTraces(xNonNeg, tt.traces)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuestionTraces(t *testing.T) {
	store := memory.NewTraceStore(1)
	require.NoError(t, store.Append(trace.Question, [][]float64{{5}, {3}, {-1}}))

	traces, err := QuestionTraces(store)
	require.NoError(t, err)

	got, err := CheckQuestionTraces(equation.MustFromCoefficients(1, 1, 0, 1), traces)
	require.NoError(t, err)
	assert.Equal(t, Rejected(0), got)
}

func TestPredict(t *testing.T) {
	h := equation.MustFromCoefficients(1, 1, -2, 1)

	got, err := Predict(h, []float64{2})
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	got, err = Predict(h, []float64{1})
	require.NoError(t, err)
	assert.Equal(t, -1, got)
}
