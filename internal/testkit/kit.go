package testkit

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"invlearn/adapters/oracle"
	"invlearn/adapters/rng"
	"invlearn/adapters/svm"
	"invlearn/domain/core"
	"invlearn/domain/trace"
	"invlearn/internal"
	"invlearn/internal/config"
	"invlearn/models"
	"invlearn/ports"
)

// TestKit wires in-memory adapters around the real solver and oracle
type TestKit struct {
	repo     *InMemoryInvariantRepository
	sessions *InMemorySessionRepository
	rng      rng.Source
	config   config.LearningConfig
}

// NewTestKit creates a kit with default learning settings
func NewTestKit() *TestKit {
	return &TestKit{
		repo:     NewInMemoryInvariantRepository(),
		sessions: NewInMemorySessionRepository(),
		rng:      rng.New(),
		config:   config.Default().Learning,
	}
}

// Config returns the learning settings the kit hands out
func (t *TestKit) Config() config.LearningConfig {
	return t.config
}

// WithConfig overrides the learning settings
func (t *TestKit) WithConfig(cfg config.LearningConfig) *TestKit {
	t.config = cfg
	return t
}

// Repository returns the shared invariant repository
func (t *TestKit) Repository() *InMemoryInvariantRepository {
	return t.repo
}

// Sessions returns the shared session repository
func (t *TestKit) Sessions() *InMemorySessionRepository {
	return t.sessions
}

// RNG returns the random stream source
func (t *TestKit) RNG() ports.RNGPort {
	return t.rng
}

// Solver returns an SVM solver built from the kit's settings
func (t *TestKit) Solver() ports.LinearClassifier {
	return svm.NewSolver(svm.Config{
		C:         t.config.SolverC,
		Tolerance: t.config.SolverTolerance,
		MaxPasses: t.config.SolverMaxPasses,
		Seed:      t.config.Seed,
	}).WithLogger(internal.NewNopLogger())
}

// Oracle returns the simplex implication oracle
func (t *TestKit) Oracle() ports.ImplicationOracle {
	return oracle.NewSimplex().WithLogger(internal.NewNopLogger())
}

// InMemoryInvariantRepository keeps invariants in a map
type InMemoryInvariantRepository struct {
	mu         sync.RWMutex
	invariants map[core.InvariantID]*models.Invariant
	SaveErr    error
}

var _ ports.InvariantRepository = (*InMemoryInvariantRepository)(nil)

// NewInMemoryInvariantRepository creates an empty repository
func NewInMemoryInvariantRepository() *InMemoryInvariantRepository {
	return &InMemoryInvariantRepository{invariants: make(map[core.InvariantID]*models.Invariant)}
}

// Save implements ports.InvariantRepository
func (r *InMemoryInvariantRepository) Save(ctx context.Context, inv *models.Invariant) error {
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *inv
	cp.Coefficients = append(models.Coefficients(nil), inv.Coefficients...)
	r.invariants[inv.ID] = &cp
	return nil
}

// Get implements ports.InvariantRepository
func (r *InMemoryInvariantRepository) Get(ctx context.Context, id core.InvariantID) (*models.Invariant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invariants[id]
	if !ok {
		return nil, fmt.Errorf("%w: invariant %s", core.ErrNotFound, id)
	}
	cp := *inv
	return &cp, nil
}

// ListByProgram implements ports.InvariantRepository
func (r *InMemoryInvariantRepository) ListByProgram(ctx context.Context, program core.ProgramName, limit int) ([]*models.Invariant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Invariant
	for _, inv := range r.invariants {
		if inv.Program == program {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored invariants
func (r *InMemoryInvariantRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.invariants)
}

// ScriptedHarness answers RunOnce from a function
type ScriptedHarness struct {
	arity int
	run   func(input []int) (trace.Trace, error)

	mu    sync.Mutex
	calls int
}

var _ ports.Harness = (*ScriptedHarness)(nil)

// NewScriptedHarness creates a harness of the given arity
func NewScriptedHarness(arity int, run func(input []int) (trace.Trace, error)) *ScriptedHarness {
	return &ScriptedHarness{arity: arity, run: run}
}

// Arity implements ports.Harness
func (h *ScriptedHarness) Arity() int { return h.arity }

// RunOnce implements ports.Harness
func (h *ScriptedHarness) RunOnce(ctx context.Context, input []int) (trace.Trace, error) {
	if err := ctx.Err(); err != nil {
		return trace.Trace{}, err
	}
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	return h.run(input)
}

// Calls returns how many runs were requested
func (h *ScriptedHarness) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

// SingleState labels the one-state trace {input} by pred: positive when it
// holds, negative otherwise
func SingleState(pred func(input []int) bool) func(input []int) (trace.Trace, error) {
	return func(input []int) (trace.Trace, error) {
		st := make(trace.State, len(input))
		for i, v := range input {
			st[i] = float64(v)
		}
		label := trace.Negative
		if pred(input) {
			label = trace.Positive
		}
		return trace.Trace{Label: label, Input: append([]int(nil), input...), States: []trace.State{st}}, nil
	}
}

// FakeClassifier returns a fixed model
type FakeClassifier struct {
	Weights []float64
	Bias    float64
	Err     error

	mu       sync.Mutex
	trained  int
	released int
}

var _ ports.LinearClassifier = (*FakeClassifier)(nil)

// Train implements ports.LinearClassifier
func (f *FakeClassifier) Train(ctx context.Context, p *ports.Problem) (ports.Model, error) {
	f.mu.Lock()
	f.trained++
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return &fakeModel{owner: f, weights: append([]float64(nil), f.Weights...), bias: f.Bias}, nil
}

// Trained returns the number of Train calls
func (f *FakeClassifier) Trained() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trained
}

// Released returns the number of models released
func (f *FakeClassifier) Released() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

type fakeModel struct {
	owner   *FakeClassifier
	weights []float64
	bias    float64
}

func (m *fakeModel) Weights() []float64 { return m.weights }
func (m *fakeModel) Bias() float64      { return m.bias }
func (m *fakeModel) Release() {
	m.owner.mu.Lock()
	m.owner.released++
	m.owner.mu.Unlock()
}

// InMemorySessionRepository keeps session records in a map
type InMemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]models.LearningSession
	saves    int
}

var _ ports.SessionRepository = (*InMemorySessionRepository)(nil)

// NewInMemorySessionRepository creates an empty repository
func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{sessions: make(map[core.SessionID]models.LearningSession)}
}

// SaveSession implements ports.SessionRepository
func (r *InMemorySessionRepository) SaveSession(ctx context.Context, s *models.LearningSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = *s
	r.saves++
	return nil
}

// GetSession implements ports.SessionRepository
func (r *InMemorySessionRepository) GetSession(ctx context.Context, id core.SessionID) (*models.LearningSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}
	return &s, nil
}

// ListSessions implements ports.SessionRepository
func (r *InMemorySessionRepository) ListSessions(ctx context.Context, program core.ProgramName, limit int) ([]*models.LearningSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.LearningSession
	for _, s := range r.sessions {
		if program == "" || s.Program == program {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Saves returns the number of SaveSession calls
func (r *InMemorySessionRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}
