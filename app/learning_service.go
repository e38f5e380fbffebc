package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"invlearn/adapters/harness"
	"invlearn/domain/core"
	"invlearn/domain/equation"
	"invlearn/domain/trace"
	"invlearn/domain/verdict"
	"invlearn/internal"
	"invlearn/internal/config"
	"invlearn/internal/convergence"
	"invlearn/internal/learner"
	"invlearn/models"
	"invlearn/ports"
	"invlearn/programs"
)

// Observer is told about every finished iteration
type Observer func(id core.SessionID, it Iteration)

// LearningService drives sessions until a candidate invariant stops
// changing
type LearningService struct {
	solver   ports.LinearClassifier
	oracle   ports.ImplicationOracle
	repo     ports.InvariantRepository
	rng      ports.RNGPort
	cfg      config.LearningConfig
	logger   *internal.Logger
	observer Observer
	sessions ports.SessionRepository

	mu      sync.RWMutex
	results map[core.SessionID]*Result
}

// NewLearningService creates a learning service. oracle and repo may be
// nil: soundness is then reported as unverified and nothing is persisted.
func NewLearningService(solver ports.LinearClassifier, oracle ports.ImplicationOracle, repo ports.InvariantRepository, rng ports.RNGPort, cfg config.LearningConfig) *LearningService {
	return &LearningService{
		solver:  solver,
		oracle:  oracle,
		repo:    repo,
		rng:     rng,
		cfg:     cfg,
		logger:  internal.DefaultLogger,
		results: make(map[core.SessionID]*Result),
	}
}

// WithLogger sets the logger
func (s *LearningService) WithLogger(logger *internal.Logger) *LearningService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithObserver registers a callback for iteration progress
func (s *LearningService) WithObserver(observer Observer) *LearningService {
	s.observer = observer
	return s
}

// WithRepository sets where converged invariants are persisted
func (s *LearningService) WithRepository(repo ports.InvariantRepository) *LearningService {
	s.repo = repo
	return s
}

// WithSessionRepository stores a summary of every session
func (s *LearningService) WithSessionRepository(repo ports.SessionRepository) *LearningService {
	s.sessions = repo
	return s
}

// Result returns a finished session's result
func (s *LearningService) Result(id core.SessionID) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}
	return r, nil
}

// Results lists finished sessions, newest first
func (s *LearningService) Results() []*Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Result, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Manifest.CreatedAt.Time().After(out[j].Manifest.CreatedAt.Time())
	})
	return out
}

func (s *LearningService) remember(r *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.SessionID] = r
}

// Learn runs one session to convergence, failure or the iteration cap. The
// returned Result is non-nil whenever the session started, including on
// core.ErrNoConvergence.
func (s *LearningService) Learn(ctx context.Context, job Job) (*Result, error) {
	startTime := time.Now()

	h, vars, err := s.resolve(job)
	if err != nil {
		return nil, err
	}
	if job.Degree == 0 {
		job.Degree = 1
	}
	if _, err := equation.Dimension(vars.Len(), job.Degree); err != nil {
		return nil, err
	}
	bounds := job.Bounds
	if bounds == (equation.Bounds{}) {
		bounds = equation.Bounds{Min: s.cfg.MinInput, Max: s.cfg.MaxInput}
	}
	bounds = bounds.Normalized()
	seed := job.Seed
	if seed == 0 {
		seed = s.cfg.Seed
	}

	sess := newSession(job.SessionID, job.Program, vars, job.Degree, bounds, seed, s.cfg.TrainingCapacity)
	logger := s.logger.With("session", sess.ID.String(), "program", job.Program.String())

	if h == nil {
		entry, err := programs.Lookup(job.Program)
		if err != nil {
			return nil, err
		}
		harnessRNG, err := s.rng.Stream(ctx, sess.ID.String(), "harness", seed)
		if err != nil {
			return nil, err
		}
		if len(entry.Variables) != vars.Len() {
			return nil, core.NewDimensionError("variables", len(entry.Variables), vars.Len())
		}
		runner, err := harness.NewRunner(entry.Program, len(entry.Variables), harnessRNG)
		if err != nil {
			return nil, err
		}
		h = runner
	}
	sampler, err := s.rng.Stream(ctx, sess.ID.String(), "sampling", seed)
	if err != nil {
		return nil, err
	}

	classifier, err := learner.NewClassifier(s.solver, vars.Len(), job.Degree)
	if err != nil {
		return nil, err
	}
	classifier.WithLogger(logger)

	logger.Info("[Learn] starting: %d variables, degree %d, inputs in [%d, %d]", vars.Len(), job.Degree, bounds.Min, bounds.Max)
	record := models.NewLearningSession(sess.ID, sess.Program, sess.Manifest.Metadata())
	s.track(ctx, record, logger)

	result, err := s.loop(ctx, sess, h, classifier, sampler, bounds, logger)
	result.RuntimeMs = time.Since(startTime).Milliseconds()
	s.remember(result)
	s.complete(ctx, record, result, err, logger)
	if err != nil {
		logger.Warn("[Learn] stopped after %d iterations: %v", result.Iterations, err)
		return result, err
	}

	logger.Info("[Learn] converged after %d iterations: %s", result.Iterations, result.Readable)
	s.persist(ctx, result, vars, logger)
	return result, nil
}

func (s *LearningService) resolve(job Job) (ports.Harness, equation.Variables, error) {
	names := job.Variables
	if len(names) == 0 {
		if job.Harness != nil {
			return job.Harness, equation.DefaultVariables(job.Harness.Arity()), nil
		}
		entry, err := programs.Lookup(job.Program)
		if err != nil {
			return nil, equation.Variables{}, err
		}
		names = entry.Variables
	}
	vars, err := equation.NewVariables(names...)
	if err != nil {
		return nil, equation.Variables{}, err
	}
	if job.Harness != nil && job.Harness.Arity() != vars.Len() {
		return nil, equation.Variables{}, core.NewDimensionError("variables", job.Harness.Arity(), vars.Len())
	}
	return job.Harness, vars, nil
}

func (s *LearningService) loop(ctx context.Context, sess *Session, h ports.Harness, classifier *learner.Classifier, sampler *rand.Rand, bounds equation.Bounds, logger *internal.Logger) (*Result, error) {
	for sess.iteration < s.cfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			_ = sess.machine.Fail()
			return sess.result(), core.NewNoConvergenceError(sess.iteration, err)
		}
		sess.iteration++
		iterStart := time.Now()
		it := Iteration{Number: sess.iteration}

		inputs := s.plan(sess, h.Arity(), sampler, bounds)
		if err := s.collect(ctx, sess, h, inputs, logger); err != nil {
			_ = sess.machine.Fail()
			if ctx.Err() != nil {
				return sess.result(), core.NewNoConvergenceError(sess.iteration, err)
			}
			return sess.result(), err
		}

		if err := sess.machine.Transition(convergence.Training); err != nil {
			return sess.result(), err
		}
		pos, neg, err := sess.training.Extend(sess.store, sess.positives, sess.negatives)
		if err != nil {
			_ = sess.machine.Fail()
			return sess.result(), err
		}
		sess.positives, sess.negatives = pos, neg
		it.Positives, it.Negatives = pos, neg

		candidate, err := classifier.Train(ctx, sess.training)
		if errors.Is(err, core.ErrInvalidTrainingData) && ctx.Err() == nil {
			logger.Debug("[Learn] iteration %d: %v", sess.iteration, err)
			it.Skipped = err.Error()
			it.Verdict = verdict.Reject(verdict.ReasonInvalidData, -1)
			s.finish(sess, it, iterStart)
			if err := sess.machine.Transition(convergence.Collecting); err != nil {
				return sess.result(), err
			}
			continue
		}
		if err != nil {
			_ = sess.machine.Fail()
			if ctx.Err() != nil {
				return sess.result(), core.NewNoConvergenceError(sess.iteration, err)
			}
			return sess.result(), err
		}
		if err := sess.machine.Transition(convergence.Checking); err != nil {
			return sess.result(), err
		}
		sess.current = candidate
		it.Candidate = candidate

		if it.Accuracy, err = learner.Accuracy(sess.training, candidate); err != nil {
			return sess.result(), err
		}
		if it.Margins, err = learner.MarginSummary(sess.training, candidate); err != nil {
			return sess.result(), err
		}
		logger.Debug("[Learn] iteration %d: %s accuracy=%.3f margin min=%.3g mean=%.3g",
			sess.iteration, candidate.Format(sess.Vars), it.Accuracy, it.Margins.Min, it.Margins.Mean)

		questions, err := learner.QuestionTraces(sess.store)
		if err != nil {
			return sess.result(), err
		}
		outcome, err := learner.CheckQuestionTraces(candidate, questions)
		if err != nil {
			return sess.result(), err
		}
		if !outcome.Accepted {
			logger.Debug("[Learn] iteration %d: %v", sess.iteration, core.NewTraceViolationError(outcome.TraceIndex))
			it.Verdict = verdict.Reject(verdict.ReasonQuestionTrace, outcome.TraceIndex)
			if err := s.reject(sess, it, iterStart); err != nil {
				return sess.result(), err
			}
			continue
		}

		counterexamples, err := ports.ReadTraces(sess.store, trace.CounterExample)
		if err != nil {
			return sess.result(), err
		}
		report := convergence.CheckSoundness(ctx, s.oracle, candidate, counterexamples)
		it.Soundness = report.Status
		switch report.Status {
		case verdict.SoundnessRejected:
			logger.Debug("[Learn] iteration %d: counterexample trace %d satisfies the candidate", sess.iteration, report.TraceIndex)
			it.Verdict = verdict.Reject(verdict.ReasonCounterExample, report.TraceIndex)
			if err := s.reject(sess, it, iterStart); err != nil {
				return sess.result(), err
			}
			continue
		case verdict.SoundnessUnverified:
			logger.Warn("[Learn] iteration %d: soundness unverified: %v", sess.iteration, report.Err)
		}

		converged, err := convergence.HasConverged(candidate, sess.previous, s.precision())
		if err != nil {
			_ = sess.machine.Fail()
			return sess.result(), err
		}
		it.Converged = converged
		if converged {
			it.Verdict = verdict.Verdict{Status: verdict.StatusConverged, TraceIndex: -1}
			s.finish(sess, it, iterStart)
			if err := sess.machine.Transition(convergence.Converged); err != nil {
				return sess.result(), err
			}
			return s.converged(sess, candidate, it), nil
		}

		it.Verdict = verdict.Accept()
		s.finish(sess, it, iterStart)
		sess.previous = candidate
		if err := sess.machine.Transition(convergence.Collecting); err != nil {
			return sess.result(), err
		}
	}

	_ = sess.machine.Fail()
	return sess.result(), core.NewNoConvergenceError(sess.iteration, nil)
}

func (s *LearningService) precision() int {
	if s.cfg.Precision > 0 {
		return s.cfg.Precision
	}
	return equation.DefaultPrecision
}

func (s *LearningService) finish(sess *Session, it Iteration, start time.Time) {
	it.DurationMs = time.Since(start).Milliseconds()
	sess.history = append(sess.history, it)
	if s.observer != nil {
		s.observer(sess.ID, it)
	}
}

func (s *LearningService) reject(sess *Session, it Iteration, start time.Time) error {
	s.finish(sess, it, start)
	if err := sess.machine.Transition(convergence.Rejected); err != nil {
		return err
	}
	return sess.machine.Transition(convergence.Collecting)
}

func (s *LearningService) converged(sess *Session, candidate *equation.Hyperplane, it Iteration) *Result {
	normalized, scale := candidate.NormalizeTo(s.precision())
	r := sess.result()
	r.Invariant = candidate
	r.Normalized = normalized
	r.Readable = normalized.Format(sess.Vars)
	r.Scale = scale
	r.Accuracy = it.Accuracy
	r.Soundness = it.Soundness
	return r
}

// plan picks the inputs for the next round of executions: random inputs on
// the first round, afterwards points near the current candidate plus a few
// random ones
func (s *LearningService) plan(sess *Session, arity int, rng *rand.Rand, bounds equation.Bounds) [][]int {
	if sess.iteration == 1 || sess.current == nil {
		inputs := make([][]int, 0, s.cfg.InitialRuns*arity)
		for i := 0; i < s.cfg.InitialRuns*arity; i++ {
			inputs = append(inputs, equation.RandomPoint(rng, arity, bounds))
		}
		return inputs
	}

	inputs := make([][]int, 0, (s.cfg.AfterRuns+s.cfg.RandomRuns)*arity)
	for i := 0; i < s.cfg.AfterRuns*arity; i++ {
		p, _ := equation.SolveForPoint(sess.current, rng, arity, bounds, s.cfg.SolveAttempts)
		inputs = append(inputs, p)
	}
	for i := 0; i < s.cfg.RandomRuns*arity; i++ {
		inputs = append(inputs, equation.RandomPoint(rng, arity, bounds))
	}
	return inputs
}

// collect executes the program on every input and records the traces.
// Runs that overflow the state limit or never assert are dropped.
func (s *LearningService) collect(ctx context.Context, sess *Session, h ports.Harness, inputs [][]int, logger *internal.Logger) error {
	for _, input := range inputs {
		t, err := h.RunOnce(ctx, input)
		switch {
		case errors.Is(err, harness.ErrTraceTruncated), errors.Is(err, harness.ErrNoAssert):
			logger.Warn("[Learn] dropping run on %v: %v", input, err)
			continue
		case err != nil:
			return fmt.Errorf("run on %v: %w", input, err)
		}
		if err := sess.store.AppendTrace(t); err != nil {
			return fmt.Errorf("record run on %v: %w", input, err)
		}
	}
	logger.Trace("[Learn] store holds %d positive and %d negative states", sess.store.PositiveCount(), sess.store.NegativeCount())
	return nil
}

func (s *LearningService) track(ctx context.Context, record *models.LearningSession, logger *internal.Logger) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.SaveSession(ctx, record); err != nil {
		logger.Error("[Learn] failed to save session: %v", err)
	}
}

func (s *LearningService) complete(ctx context.Context, record *models.LearningSession, r *Result, runErr error, logger *internal.Logger) {
	if s.sessions == nil {
		return
	}
	switch {
	case runErr != nil:
		record.Iterations = r.Iterations
		record.SetError(runErr.Error())
	case r.Status == convergence.Converged:
		record.Finish(models.SessionStatusConverged, r.Iterations, r.Readable)
	case r.Status == convergence.Rejected:
		record.Finish(models.SessionStatusRejected, r.Iterations, r.Readable)
	default:
		record.Finish(models.SessionStatusFailed, r.Iterations, r.Readable)
	}
	// the session may end because ctx did
	s.track(context.WithoutCancel(ctx), record, logger)
}

func (s *LearningService) persist(ctx context.Context, r *Result, vars equation.Variables, logger *internal.Logger) {
	if s.repo == nil || !r.Converged() {
		return
	}
	if err := s.repo.Save(ctx, invariantRecord(r, vars)); err != nil {
		logger.Error("[Learn] failed to save invariant: %v", err)
	}
}

// Fit trains a single candidate on traces recorded elsewhere, for example
// an imported trace file. It runs the same checks as one Learn iteration but
// never collects data, so the result is either Converged or Rejected.
func (s *LearningService) Fit(ctx context.Context, program core.ProgramName, store ports.TraceStore, vars equation.Variables, degree int) (*Result, error) {
	startTime := time.Now()
	if store == nil {
		return nil, errors.New("trace store is nil")
	}
	if store.Arity() != vars.Len() {
		return nil, core.NewDimensionError("variables", store.Arity(), vars.Len())
	}
	if degree == 0 {
		degree = 1
	}
	classifier, err := learner.NewClassifier(s.solver, vars.Len(), degree)
	if err != nil {
		return nil, err
	}

	sess := newSession("", program, vars, degree, equation.Bounds{Min: s.cfg.MinInput, Max: s.cfg.MaxInput}, s.cfg.Seed, s.cfg.TrainingCapacity)
	logger := s.logger.With("session", sess.ID.String(), "program", program.String())
	classifier.WithLogger(logger)
	sess.iteration = 1
	it := Iteration{Number: 1}

	record := models.NewLearningSession(sess.ID, sess.Program, sess.Manifest.Metadata())
	record.Metadata["source"] = "import"
	s.track(ctx, record, logger)

	fail := func(err error) (*Result, error) {
		_ = sess.machine.Fail()
		r := sess.result()
		r.RuntimeMs = time.Since(startTime).Milliseconds()
		s.remember(r)
		s.complete(ctx, record, r, err, logger)
		return r, err
	}

	if err := sess.machine.Transition(convergence.Training); err != nil {
		return nil, err
	}
	pos, neg, err := sess.training.Extend(store, 0, 0)
	if err != nil {
		return fail(err)
	}
	it.Positives, it.Negatives = pos, neg
	candidate, err := classifier.Train(ctx, sess.training)
	if err != nil {
		return fail(err)
	}
	if err := sess.machine.Transition(convergence.Checking); err != nil {
		return nil, err
	}
	it.Candidate = candidate
	if it.Accuracy, err = learner.Accuracy(sess.training, candidate); err != nil {
		return fail(err)
	}
	if it.Margins, err = learner.MarginSummary(sess.training, candidate); err != nil {
		return fail(err)
	}

	questions, err := learner.QuestionTraces(store)
	if err != nil {
		return fail(err)
	}
	outcome, err := learner.CheckQuestionTraces(candidate, questions)
	if err != nil {
		return fail(err)
	}
	if outcome.Accepted {
		counterexamples, err := ports.ReadTraces(store, trace.CounterExample)
		if err != nil {
			return fail(err)
		}
		report := convergence.CheckSoundness(ctx, s.oracle, candidate, counterexamples)
		it.Soundness = report.Status
		if report.Status.Blocking() {
			it.Verdict = verdict.Reject(verdict.ReasonCounterExample, report.TraceIndex)
		}
	} else {
		it.Verdict = verdict.Reject(verdict.ReasonQuestionTrace, outcome.TraceIndex)
	}

	var r *Result
	if it.Verdict.Rejected() {
		s.finish(sess, it, startTime)
		if err := sess.machine.Transition(convergence.Rejected); err != nil {
			return nil, err
		}
		r = sess.result()
		r.Invariant = candidate
		r.Accuracy = it.Accuracy
		r.Soundness = it.Soundness
		logger.Info("[Fit] candidate rejected: %s", candidate.Format(vars))
	} else {
		it.Converged = true
		it.Verdict = verdict.Verdict{Status: verdict.StatusConverged, TraceIndex: -1}
		s.finish(sess, it, startTime)
		if err := sess.machine.Transition(convergence.Converged); err != nil {
			return nil, err
		}
		r = s.converged(sess, candidate, it)
		logger.Info("[Fit] fitted %s", r.Readable)
		s.persist(ctx, r, vars, logger)
	}
	r.RuntimeMs = time.Since(startTime).Milliseconds()
	s.remember(r)
	s.complete(ctx, record, r, nil, logger)
	return r, nil
}
