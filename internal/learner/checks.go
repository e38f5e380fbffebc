package learner

import (
	"fmt"

	"invlearn/domain/equation"
	"invlearn/domain/trace"
	"invlearn/ports"

	"github.com/montanaflynn/stats"
)

// Predict classifies a state as +1 (evaluate >= 0) or -1
func Predict(h *equation.Hyperplane, point []float64) (int, error) {
	v, err := h.Evaluate(point)
	if err != nil {
		return 0, err
	}
	if v >= 0 {
		return 1, nil
	}
	return -1, nil
}

// Accuracy returns the fraction of samples h classifies correctly, 0 for an
// empty set
func Accuracy(ts *TrainingSet, h *equation.Hyperplane) (float64, error) {
	if ts == nil || ts.Len() == 0 {
		return 0, nil
	}
	correct := 0
	for i := 0; i < ts.Len(); i++ {
		s := ts.At(i)
		label, err := Predict(h, s.Point)
		if err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		if label == s.Label {
			correct++
		}
	}
	return float64(correct) / float64(ts.Len()), nil
}

// Outcome is the verdict of checking a candidate against question traces
type Outcome struct {
	Accepted   bool
	TraceIndex int
}

// Accepted is the passing outcome
func Accepted() Outcome { return Outcome{Accepted: true, TraceIndex: -1} }

// Rejected names the first violating trace
func Rejected(i int) Outcome { return Outcome{Accepted: false, TraceIndex: i} }

func (o Outcome) String() string {
	if o.Accepted {
		return "accepted"
	}
	return fmt.Sprintf("rejected(trace %d)", o.TraceIndex)
}

// CheckQuestionTraces rejects h when some trace has a state on the
// non-negative side immediately followed by one on the negative side: an
// invariant cannot stop holding while the loop runs.
func CheckQuestionTraces(h *equation.Hyperplane, traces []trace.Trace) (Outcome, error) {
	for i, t := range traces {
		prevHolds := false
		for j, st := range t.States {
			v, err := h.Evaluate(st)
			if err != nil {
				return Outcome{}, fmt.Errorf("trace %d state %d: %w", i, j, err)
			}
			holds := v >= 0
			if j > 0 && prevHolds && !holds {
				return Rejected(i), nil
			}
			prevHolds = holds
		}
	}
	return Accepted(), nil
}

// QuestionTraces reads every question trace from the store
func QuestionTraces(store ports.TraceReader) ([]trace.Trace, error) {
	return ports.ReadTraces(store, trace.Question)
}

// Margins summarizes the signed distances label*evaluate over a training set
type Margins struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
}

// MarginSummary computes Margins; a negative Min means some sample is
// misclassified
func MarginSummary(ts *TrainingSet, h *equation.Hyperplane) (Margins, error) {
	if ts == nil || ts.Len() == 0 {
		return Margins{}, nil
	}
	data := make(stats.Float64Data, ts.Len())
	for i := range data {
		s := ts.At(i)
		v, err := h.Evaluate(s.Point)
		if err != nil {
			return Margins{}, fmt.Errorf("sample %d: %w", i, err)
		}
		data[i] = float64(s.Label) * v
	}

	var m Margins
	var err error
	if m.Mean, err = data.Mean(); err != nil {
		return Margins{}, err
	}
	if m.StdDev, err = data.StandardDeviation(); err != nil {
		return Margins{}, err
	}
	if m.Min, err = data.Min(); err != nil {
		return Margins{}, err
	}
	return m, nil
}
