// Package harness runs instrumented Go programs and labels the traces they
// record.
package harness

import (
	"math/rand"

	"invlearn/domain/trace"
)

// Program is a loop under study. It reads its integer inputs, states its
// precondition with Assume, records the loop-head state with Record on every
// iteration and once after the loop, then states its postcondition with
// Assert. Record returns false once the state limit is hit; the program
// should return immediately.
type Program func(r *Recorder, input []int)

// Recorder collects the states of one execution
type Recorder struct {
	arity     int
	maxStates int
	rng       *rand.Rand

	states    []trace.State
	assumed   bool
	asserted  bool
	sawAssert bool
	truncated bool
	badArity  int
}

func newRecorder(arity, maxStates int, rng *rand.Rand) *Recorder {
	return &Recorder{arity: arity, maxStates: maxStates, rng: rng, assumed: true, asserted: true, badArity: -1}
}

// Assume records the precondition. Several calls are conjoined.
func (r *Recorder) Assume(cond bool) {
	r.assumed = r.assumed && cond
}

// Assert records the postcondition. Several calls are conjoined.
func (r *Recorder) Assert(cond bool) {
	r.sawAssert = true
	r.asserted = r.asserted && cond
}

// Record appends one state
func (r *Recorder) Record(values ...int) bool {
	if len(values) != r.arity {
		r.badArity = len(values)
		return false
	}
	if len(r.states) >= r.maxStates {
		r.truncated = true
		return false
	}
	st := make(trace.State, len(values))
	for i, v := range values {
		st[i] = float64(v)
	}
	r.states = append(r.states, st)
	return true
}

// Nondet returns a value in [0, n), standing in for unknown program input
// such as a loop guard the analysis cannot see
func (r *Recorder) Nondet(n int) int {
	return r.rng.Intn(n)
}

// Label classifies the finished execution
func (r *Recorder) Label() trace.Label {
	return trace.Classify(r.assumed, r.asserted)
}
