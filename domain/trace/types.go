package trace

import (
	"fmt"
	"strings"

	"invlearn/domain/core"
)

// Label classifies a recorded execution by how it relates to the loop's
// precondition and postcondition.
type Label int

// Negative is -1 so that positive/negative labels double as classifier labels.
const (
	Negative Label = iota - 1
	Question
	Positive
	CounterExample
)

// Labels lists every label in storage order.
var Labels = []Label{Negative, Question, Positive, CounterExample}

func (l Label) String() string {
	switch l {
	case Negative:
		return "negative"
	case Question:
		return "question"
	case Positive:
		return "positive"
	case CounterExample:
		return "counter_example"
	default:
		return fmt.Sprintf("label(%d)", int(l))
	}
}

// Valid reports whether l is one of the four known labels
func (l Label) Valid() bool {
	return l >= Negative && l <= CounterExample
}

// ParseLabel accepts the String() form plus a few common aliases.
func ParseLabel(s string) (Label, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "negative", "neg", "-1", "-":
		return Negative, nil
	case "question", "q", "0", "?":
		return Question, nil
	case "positive", "pos", "1", "+":
		return Positive, nil
	case "counter_example", "counterexample", "cex", "2":
		return CounterExample, nil
	default:
		return 0, fmt.Errorf("%w: %q", core.ErrUnknownLabel, s)
	}
}

// Classify derives the trace label from whether the precondition held on
// entry and whether the postcondition held on exit.
func Classify(assumed, asserted bool) Label {
	switch {
	case assumed && asserted:
		return Positive
	case assumed && !asserted:
		return CounterExample
	case !assumed && asserted:
		return Question
	default:
		return Negative
	}
}

// State is one recorded program state, ordered like the session variables.
type State []float64

// Trace is the ordered sequence of states recorded by one execution.
type Trace struct {
	Label  Label   `json:"label"`
	Input  []int   `json:"input,omitempty"`
	States []State `json:"states"`
}

// Len returns the number of recorded states
func (t Trace) Len() int {
	return len(t.States)
}

// Last returns the final recorded state, or nil for an empty trace
func (t Trace) Last() State {
	if len(t.States) == 0 {
		return nil
	}
	return t.States[len(t.States)-1]
}

// Points returns the states as plain float slices.
func (t Trace) Points() [][]float64 {
	points := make([][]float64, len(t.States))
	for i, s := range t.States {
		points[i] = s
	}
	return points
}
