// Package learner turns recorded traces into a separating hyperplane and
// checks candidates against the traces the classifier never saw.
package learner

import (
	"fmt"

	"invlearn/domain/core"
	"invlearn/domain/trace"
	"invlearn/ports"
)

// DefaultCapacity is the initial number of sample slots
const DefaultCapacity = 10000

// Sample is one labeled point; Label is +1 or -1
type Sample struct {
	Point []float64
	Label int
}

// TrainingSet holds positive samples in a prefix and negative samples in
// the following block, never interleaved. Slots beyond Len are spare
// capacity.
type TrainingSet struct {
	points [][]float64
	pos    int
	neg    int
}

// NewTrainingSet allocates a set with the given number of slots
func NewTrainingSet(capacity int) *TrainingSet {
	if capacity < 1 {
		capacity = 1
	}
	return &TrainingSet{points: make([][]float64, capacity)}
}

// Len returns the number of samples
func (ts *TrainingSet) Len() int { return ts.pos + ts.neg }

// Positives returns the size of the positive prefix
func (ts *TrainingSet) Positives() int { return ts.pos }

// Negatives returns the size of the negative block
func (ts *TrainingSet) Negatives() int { return ts.neg }

// Capacity returns the number of allocated slots
func (ts *TrainingSet) Capacity() int { return len(ts.points) }

// At returns sample i
func (ts *TrainingSet) At(i int) Sample {
	label := 1
	if i >= ts.pos {
		label = -1
	}
	return Sample{Point: ts.points[i], Label: label}
}

// Samples returns every sample in storage order
func (ts *TrainingSet) Samples() []Sample {
	out := make([]Sample, ts.Len())
	for i := range out {
		out[i] = ts.At(i)
	}
	return out
}

// Extend pulls the positive and negative states the store gained since the
// set last held prevPositive and prevNegative of them. The negative block is
// shifted right to make room for new positives, then new states of both
// labels are appended. It returns the new counts, which callers pass back on
// the next call. Extending in several steps yields the same set as a single
// Extend from zero.
func (ts *TrainingSet) Extend(store ports.TraceReader, prevPositive, prevNegative int) (int, int, error) {
	if prevPositive != ts.pos || prevNegative != ts.neg {
		return ts.pos, ts.neg, core.NewTrainingDataError(fmt.Sprintf(
			"set holds %d/%d samples, caller expected %d/%d", ts.pos, ts.neg, prevPositive, prevNegative))
	}
	curPositive, curNegative := store.PositiveCount(), store.NegativeCount()
	if curPositive < prevPositive || curNegative < prevNegative {
		return ts.pos, ts.neg, core.NewTrainingDataError(fmt.Sprintf(
			"store shrank from %d/%d to %d/%d states", prevPositive, prevNegative, curPositive, curNegative))
	}

	fresh := func(label trace.Label, from, to int) ([][]float64, error) {
		out := make([][]float64, 0, to-from)
		for i := from; i < to; i++ {
			p, err := store.PointAt(label, i)
			if err != nil {
				return nil, fmt.Errorf("%s state %d: %w", label, i, err)
			}
			out = append(out, p)
		}
		return out, nil
	}
	newPositive, err := fresh(trace.Positive, prevPositive, curPositive)
	if err != nil {
		return ts.pos, ts.neg, err
	}
	newNegative, err := fresh(trace.Negative, prevNegative, curNegative)
	if err != nil {
		return ts.pos, ts.neg, err
	}

	if total := curPositive + curNegative; total > len(ts.points) {
		size := len(ts.points)
		for total > size {
			size *= 2
		}
		grown := make([][]float64, size)
		copy(grown, ts.points[:ts.Len()])
		ts.points = grown
	}

	// copy handles the overlapping ranges like memmove
	copy(ts.points[curPositive:curPositive+prevNegative], ts.points[prevPositive:prevPositive+prevNegative])
	copy(ts.points[prevPositive:curPositive], newPositive)
	copy(ts.points[curPositive+prevNegative:], newNegative)

	ts.pos, ts.neg = curPositive, curNegative
	return ts.pos, ts.neg, nil
}
