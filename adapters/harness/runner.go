package harness

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"invlearn/domain/core"
	"invlearn/domain/trace"
	"invlearn/ports"
)

// DefaultMaxStates bounds the states recorded by a single execution
const DefaultMaxStates = 10240

var (
	// ErrTraceTruncated means the program recorded more states than allowed
	ErrTraceTruncated = errors.New("trace exceeded the state limit")
	// ErrNoAssert means the program returned without stating a postcondition
	ErrNoAssert = errors.New("program finished without an assert")
)

// Runner executes one Program in-process
type Runner struct {
	program   Program
	arity     int
	maxStates int

	mu  sync.Mutex
	rng *rand.Rand
}

var _ ports.Harness = (*Runner)(nil)

// NewRunner wraps a program recording arity variables per state. rng drives
// the program's Nondet choices.
func NewRunner(program Program, arity int, rng *rand.Rand) (*Runner, error) {
	if program == nil {
		return nil, fmt.Errorf("program cannot be nil")
	}
	if arity < 1 {
		return nil, fmt.Errorf("%w: arity %d", core.ErrInvalidVariables, arity)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Runner{program: program, arity: arity, maxStates: DefaultMaxStates, rng: rng}, nil
}

// WithMaxStates changes the per-run state limit
func (h *Runner) WithMaxStates(n int) *Runner {
	if n > 0 {
		h.maxStates = n
	}
	return h
}

// Arity implements ports.Harness
func (h *Runner) Arity() int {
	return h.arity
}

// RunOnce implements ports.Harness
func (h *Runner) RunOnce(ctx context.Context, input []int) (trace.Trace, error) {
	if err := ctx.Err(); err != nil {
		return trace.Trace{}, err
	}
	if len(input) != h.arity {
		return trace.Trace{}, core.NewDimensionError("input", h.arity, len(input))
	}

	h.mu.Lock()
	seed := h.rng.Int63()
	h.mu.Unlock()

	rec := newRecorder(h.arity, h.maxStates, rand.New(rand.NewSource(seed)))
	h.program(rec, append([]int(nil), input...))

	t := trace.Trace{Label: rec.Label(), Input: append([]int(nil), input...), States: rec.states}
	switch {
	case rec.badArity >= 0:
		return t, core.NewDimensionError("recorded state", h.arity, rec.badArity)
	case rec.truncated:
		return t, fmt.Errorf("%w: %d states", ErrTraceTruncated, h.maxStates)
	case !rec.sawAssert:
		return t, ErrNoAssert
	}
	return t, nil
}
