package app

import (
	"invlearn/adapters/memory"
	"invlearn/domain/core"
	"invlearn/domain/equation"
	"invlearn/domain/run"
	"invlearn/domain/verdict"
	"invlearn/internal/convergence"
	"invlearn/internal/learner"
	"invlearn/ports"
)

// Job describes one learning session
type Job struct {
	// SessionID is assigned when empty.
	SessionID core.SessionID
	Program   core.ProgramName
	// Variables names the recorded state; defaults to the program's own names.
	Variables []string
	Degree    int
	Bounds    equation.Bounds
	Seed      int64
	// Harness overrides the program registry, mainly for tests.
	Harness ports.Harness
}

// Iteration records what happened in one pass of the loop
type Iteration struct {
	Number     int                  `json:"number"`
	Positives  int                  `json:"positives"`
	Negatives  int                  `json:"negatives"`
	Candidate  *equation.Hyperplane `json:"candidate,omitempty"`
	Accuracy   float64              `json:"accuracy"`
	Margins    learner.Margins      `json:"margins"`
	Verdict    verdict.Verdict      `json:"verdict"`
	Soundness  verdict.Soundness    `json:"soundness,omitempty"`
	Converged  bool                 `json:"converged"`
	Skipped    string               `json:"skipped,omitempty"`
	DurationMs int64                `json:"duration_ms"`
}

// Result is the outcome of a learning session
type Result struct {
	SessionID  core.SessionID       `json:"session_id"`
	Program    core.ProgramName     `json:"program"`
	Variables  []string             `json:"variables"`
	Status     convergence.State    `json:"status"`
	Invariant  *equation.Hyperplane `json:"invariant,omitempty"`
	Normalized *equation.Hyperplane `json:"normalized,omitempty"`
	Readable   string               `json:"readable,omitempty"`
	Scale      equation.Scale       `json:"scale"`
	Iterations int                  `json:"iterations"`
	Accuracy   float64              `json:"accuracy"`
	Soundness  verdict.Soundness    `json:"soundness,omitempty"`
	History    []Iteration          `json:"history"`
	Manifest   *run.Manifest        `json:"manifest"`
	RuntimeMs  int64                `json:"runtime_ms"`
}

// Converged reports whether the session found an invariant
func (r *Result) Converged() bool {
	return r.Status == convergence.Converged
}

// Session is the mutable state of one learning run. It is owned by a single
// goroutine.
type Session struct {
	ID       core.SessionID
	Program  core.ProgramName
	Vars     equation.Variables
	Degree   int
	Manifest *run.Manifest

	store    *memory.TraceStore
	training *learner.TrainingSet
	machine  *convergence.Machine

	current   *equation.Hyperplane
	previous  *equation.Hyperplane
	positives int
	negatives int
	iteration int
	history   []Iteration
}

func newSession(id core.SessionID, program core.ProgramName, vars equation.Variables, degree int, bounds equation.Bounds, seed int64, capacity int) *Session {
	if id == "" {
		id = core.NewSessionID()
	}
	return &Session{
		ID:       id,
		Program:  program,
		Vars:     vars,
		Degree:   degree,
		Manifest: run.NewManifest(id, program, vars, degree, bounds, seed),
		store:    memory.NewTraceStore(vars.Len()),
		training: learner.NewTrainingSet(capacity),
		machine:  convergence.NewMachine(),
	}
}

// Store exposes the session's recorded traces
func (s *Session) Store() ports.TraceStore {
	return s.store
}

// State returns the loop phase
func (s *Session) State() convergence.State {
	return s.machine.State()
}

func (s *Session) result() *Result {
	return &Result{
		SessionID:  s.ID,
		Program:    s.Program,
		Variables:  s.Vars.Names(),
		Status:     s.machine.State(),
		Iterations: s.iteration,
		History:    append([]Iteration(nil), s.history...),
		Manifest:   s.Manifest,
	}
}
