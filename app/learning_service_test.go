package app

import (
	"context"
	"sync"
	"testing"

	"invlearn/adapters/memory"
	"invlearn/domain/core"
	"invlearn/domain/equation"
	"invlearn/domain/trace"
	"invlearn/domain/verdict"
	"invlearn/internal"
	"invlearn/internal/config"
	"invlearn/internal/convergence"
	"invlearn/internal/testkit"
	"invlearn/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nonNegative(input []int) bool { return input[0] >= 0 }

func newService(t *testing.T, kit *testkit.TestKit, solver *testkit.FakeClassifier, cfg config.LearningConfig) *LearningService {
	t.Helper()
	var s *LearningService
	if solver == nil {
		s = NewLearningService(kit.Solver(), kit.Oracle(), kit.Repository(), kit.RNG(), cfg)
	} else {
		s = NewLearningService(solver, kit.Oracle(), kit.Repository(), kit.RNG(), cfg)
	}
	return s.WithLogger(internal.NewNopLogger()).WithSessionRepository(kit.Sessions())
}

func TestLearn_FixedModelConverges(t *testing.T) {
	kit := testkit.NewTestKit()
	fake := &testkit.FakeClassifier{Weights: []float64{2}, Bias: 0}
	svc := newService(t, kit, fake, kit.Config())

	var mu sync.Mutex
	var seen []int
	svc.WithObserver(func(id core.SessionID, it Iteration) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, it.Number)
	})

	h := testkit.NewScriptedHarness(1, testkit.SingleState(nonNegative))
	result, err := svc.Learn(context.Background(), Job{Program: "half_line", Variables: []string{"x"}, Degree: 1, Harness: h})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Converged())
	assert.Equal(t, convergence.Converged, result.Status)
	assert.GreaterOrEqual(t, result.Iterations, 2)
	assert.Equal(t, "x >= 0", result.Readable)
	assert.Equal(t, []float64{0, 1}, result.Normalized.Coefficients())
	assert.Equal(t, []float64{0, 2}, result.Invariant.Coefficients())
	assert.Equal(t, verdict.SoundnessVacuous, result.Soundness)
	assert.Equal(t, 1.0, result.Accuracy)
	assert.Len(t, result.History, result.Iterations)
	assert.Len(t, seen, result.Iterations)
	assert.Equal(t, verdict.StatusConverged, result.History[len(result.History)-1].Verdict.Status)
	assert.Equal(t, fake.Trained(), fake.Released())
	assert.Greater(t, h.Calls(), 0)

	assert.Equal(t, 1, kit.Repository().Len())
	saved, err := kit.Repository().ListByProgram(context.Background(), "half_line", 10)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, result.SessionID, saved[0].SessionID)
	assert.Equal(t, "x >= 0", saved[0].Normalized)

	cached, err := svc.Result(result.SessionID)
	require.NoError(t, err)
	assert.Same(t, result, cached)

	record, err := kit.Sessions().GetSession(context.Background(), result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusConverged, record.Status)
	assert.Equal(t, "x >= 0", record.Readable)
	assert.Equal(t, result.Manifest.Fingerprint, record.Metadata["fingerprint"])
	assert.Equal(t, 2, kit.Sessions().Saves())
}

func TestLearn_RegisteredProgramWithSolver(t *testing.T) {
	kit := testkit.NewTestKit()
	cfg := kit.Config()
	cfg.SolverTolerance = 1e-6
	svc := newService(t, kit, nil, cfg)

	result, err := svc.Learn(context.Background(), Job{Program: "count_up", Degree: 1, Seed: 7})
	require.NoError(t, err)
	require.True(t, result.Converged())

	at := func(x float64) float64 {
		v, err := result.Invariant.Evaluate([]float64{x})
		require.NoError(t, err)
		return v
	}
	assert.GreaterOrEqual(t, at(0), 0.0)
	assert.GreaterOrEqual(t, at(10), 0.0)
	assert.Less(t, at(-1), 0.0)
	assert.Equal(t, []string{"x"}, result.Variables)
	require.NotNil(t, result.Manifest)
	assert.NoError(t, result.Manifest.Validate())
}

func TestLearn_QuestionTraceBlocksConvergence(t *testing.T) {
	kit := testkit.NewTestKit()
	cfg := kit.Config()
	cfg.MaxIterations = 3
	fake := &testkit.FakeClassifier{Weights: []float64{1}}
	svc := newService(t, kit, fake, cfg)

	var once sync.Once
	single := testkit.SingleState(nonNegative)
	h := testkit.NewScriptedHarness(1, func(input []int) (trace.Trace, error) {
		var q *trace.Trace
		once.Do(func() {
			q = &trace.Trace{Label: trace.Question, Input: []int{3}, States: []trace.State{{3}, {-2}}}
		})
		if q != nil {
			return *q, nil
		}
		return single(input)
	})

	result, err := svc.Learn(context.Background(), Job{Program: "question", Variables: []string{"x"}, Harness: h})
	require.ErrorIs(t, err, core.ErrNoConvergence)
	require.NotNil(t, result)
	assert.Equal(t, convergence.Failed, result.Status)
	assert.Equal(t, 3, result.Iterations)
	assert.False(t, result.Converged())
	for _, it := range result.History {
		if it.Skipped != "" {
			continue
		}
		assert.Equal(t, verdict.ReasonQuestionTrace, it.Verdict.Reason)
		assert.Equal(t, 0, it.Verdict.TraceIndex)
	}
	assert.Zero(t, kit.Repository().Len())

	record, err := kit.Sessions().GetSession(context.Background(), result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusFailed, record.Status)
	assert.True(t, record.Error.Valid)
	assert.Equal(t, 3, record.Iterations)
}

func TestLearn_CounterExampleRejectsCandidate(t *testing.T) {
	kit := testkit.NewTestKit()
	cfg := kit.Config()
	cfg.MaxIterations = 2
	fake := &testkit.FakeClassifier{Weights: []float64{1}}
	svc := newService(t, kit, fake, cfg)

	single := testkit.SingleState(nonNegative)
	h := testkit.NewScriptedHarness(1, func(input []int) (trace.Trace, error) {
		if input[0] == 0 {
			return trace.Trace{Label: trace.CounterExample, Input: input, States: []trace.State{{0}, {5}}}, nil
		}
		return single(input)
	})

	result, err := svc.Learn(context.Background(), Job{
		Program: "unsound", Variables: []string{"x"}, Harness: h,
		Bounds: equation.Bounds{Min: -1, Max: 1},
	})
	require.ErrorIs(t, err, core.ErrNoConvergence)
	rejected := 0
	for _, it := range result.History {
		if it.Verdict.Reason == verdict.ReasonCounterExample {
			rejected++
			assert.Equal(t, verdict.SoundnessRejected, it.Soundness)
		}
	}
	assert.Positive(t, rejected)
}

func TestLearn_Errors(t *testing.T) {
	kit := testkit.NewTestKit()
	fake := &testkit.FakeClassifier{Weights: []float64{1}}
	svc := newService(t, kit, fake, kit.Config())
	h := testkit.NewScriptedHarness(1, testkit.SingleState(nonNegative))

	tests := []struct {
		name string
		job  Job
		want error
	}{
		{"unknown program", Job{Program: "missing"}, core.ErrProgramNotFound},
		{"variable count", Job{Program: "x", Variables: []string{"x", "y"}, Harness: h}, core.ErrDimensionMismatch},
		{"registered arity", Job{Program: "count_up", Variables: []string{"x", "y"}}, core.ErrDimensionMismatch},
		{"degree", Job{Program: "x", Variables: []string{"x"}, Degree: -1, Harness: h}, core.ErrInvalidDegree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Learn(context.Background(), tt.job)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, result)
		})
	}
}

func TestLearn_CanceledContext(t *testing.T) {
	kit := testkit.NewTestKit()
	svc := newService(t, kit, &testkit.FakeClassifier{Weights: []float64{1}}, kit.Config())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := testkit.NewScriptedHarness(1, testkit.SingleState(nonNegative))
	result, err := svc.Learn(ctx, Job{Program: "p", Variables: []string{"x"}, Harness: h})
	require.Error(t, err)
	if result != nil {
		assert.Equal(t, convergence.Failed, result.Status)
	}
	assert.Zero(t, kit.Repository().Len())
}

func TestLearn_SaveFailureIsNotFatal(t *testing.T) {
	kit := testkit.NewTestKit()
	kit.Repository().SaveErr = assert.AnError
	svc := newService(t, kit, &testkit.FakeClassifier{Weights: []float64{1}}, kit.Config())

	h := testkit.NewScriptedHarness(1, testkit.SingleState(nonNegative))
	result, err := svc.Learn(context.Background(), Job{Program: "p", Variables: []string{"x"}, Harness: h})
	require.NoError(t, err)
	assert.True(t, result.Converged())
}

func TestResult_UnknownSession(t *testing.T) {
	kit := testkit.NewTestKit()
	svc := newService(t, kit, &testkit.FakeClassifier{}, kit.Config())
	_, err := svc.Result(core.NewSessionID())
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	assert.True(t, core.IsNotFoundError(err))
}

func TestFit(t *testing.T) {
	vars, err := equation.NewVariables("x")
	require.NoError(t, err)

	fill := func(t *testing.T, withQuestion bool) *memory.TraceStore {
		store := memory.NewTraceStore(1)
		for x := -5; x <= 5; x++ {
			label := trace.Positive
			if x < 0 {
				label = trace.Negative
			}
			require.NoError(t, store.Append(label, [][]float64{{float64(x)}}))
		}
		if withQuestion {
			require.NoError(t, store.Append(trace.Question, [][]float64{{1}, {-1}}))
		}
		return store
	}

	t.Run("accepts separating model", func(t *testing.T) {
		kit := testkit.NewTestKit()
		svc := newService(t, kit, &testkit.FakeClassifier{Weights: []float64{4}, Bias: 2}, kit.Config())
		result, err := svc.Fit(context.Background(), "imported", fill(t, false), vars, 1)
		require.NoError(t, err)
		assert.True(t, result.Converged())
		assert.Equal(t, "2*x + 1 >= 0", result.Readable)
		assert.Equal(t, 1.0, result.Accuracy)
		assert.Equal(t, 1, kit.Repository().Len())
	})

	t.Run("rejects on question trace", func(t *testing.T) {
		kit := testkit.NewTestKit()
		svc := newService(t, kit, &testkit.FakeClassifier{Weights: []float64{1}}, kit.Config())
		result, err := svc.Fit(context.Background(), "imported", fill(t, true), vars, 1)
		require.NoError(t, err)
		assert.Equal(t, convergence.Rejected, result.Status)
		require.Len(t, result.History, 1)
		assert.Equal(t, verdict.ReasonQuestionTrace, result.History[0].Verdict.Reason)
		assert.Zero(t, kit.Repository().Len())
	})

	t.Run("arity mismatch", func(t *testing.T) {
		kit := testkit.NewTestKit()
		svc := newService(t, kit, &testkit.FakeClassifier{Weights: []float64{1}}, kit.Config())
		_, err := svc.Fit(context.Background(), "imported", memory.NewTraceStore(2), vars, 1)
		assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	})

	t.Run("one class only", func(t *testing.T) {
		kit := testkit.NewTestKit()
		svc := newService(t, kit, &testkit.FakeClassifier{Weights: []float64{1}}, kit.Config())
		store := memory.NewTraceStore(1)
		require.NoError(t, store.Append(trace.Positive, [][]float64{{1}}))
		result, err := svc.Fit(context.Background(), "imported", store, vars, 1)
		assert.ErrorIs(t, err, core.ErrInvalidTrainingData)
		require.NotNil(t, result)
		assert.Equal(t, convergence.Failed, result.Status)
	})
}
