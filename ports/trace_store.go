package ports

import (
	"invlearn/domain/trace"
)

// TraceReader exposes recorded states grouped by label. Positive and negative
// states are addressed by a flat index over every state of that label;
// question and counterexample traces keep their boundaries.
type TraceReader interface {
	// PositiveCount returns the number of positive states recorded so far
	PositiveCount() int

	// NegativeCount returns the number of negative states recorded so far
	NegativeCount() int

	// TraceCount returns how many traces carry the given label
	TraceCount(label trace.Label) int

	// TraceRange returns the half-open flat index range [start, end) of trace i
	TraceRange(label trace.Label, i int) (start, end int, err error)

	// PointAt returns the state stored at a flat index
	PointAt(label trace.Label, flat int) ([]float64, error)
}

// TraceStore is a TraceReader that can also accept new traces.
type TraceStore interface {
	TraceReader

	// Arity is the width of every stored state
	Arity() int

	// Append records one trace's states under a label
	Append(label trace.Label, states [][]float64) error

	// Reset drops everything
	Reset()
}

// ReadTraces rebuilds the traces of one label from any reader.
func ReadTraces(r TraceReader, label trace.Label) ([]trace.Trace, error) {
	n := r.TraceCount(label)
	out := make([]trace.Trace, 0, n)
	for i := 0; i < n; i++ {
		start, end, err := r.TraceRange(label, i)
		if err != nil {
			return nil, err
		}
		t := trace.Trace{Label: label, States: make([]trace.State, 0, end-start)}
		for flat := start; flat < end; flat++ {
			p, err := r.PointAt(label, flat)
			if err != nil {
				return nil, err
			}
			t.States = append(t.States, p)
		}
		out = append(out, t)
	}
	return out, nil
}
