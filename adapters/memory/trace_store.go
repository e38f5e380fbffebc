package memory

import (
	"fmt"
	"sync"

	"invlearn/domain/core"
	"invlearn/domain/trace"
	"invlearn/ports"
)

// bucket holds every state of one label back to back, plus where each
// trace starts.
type bucket struct {
	points [][]float64
	starts []int
}

func (b *bucket) rangeOf(i int) (int, int, error) {
	if i < 0 || i >= len(b.starts) {
		return 0, 0, fmt.Errorf("%w: trace %d of %d", core.ErrIndexOutOfRange, i, len(b.starts))
	}
	end := len(b.points)
	if i+1 < len(b.starts) {
		end = b.starts[i+1]
	}
	return b.starts[i], end, nil
}

// TraceStore keeps recorded states in memory, grouped by label.
type TraceStore struct {
	mu      sync.RWMutex
	arity   int
	buckets map[trace.Label]*bucket
}

var _ ports.TraceStore = (*TraceStore)(nil)

// NewTraceStore creates an empty store for states of the given arity
func NewTraceStore(arity int) *TraceStore {
	s := &TraceStore{arity: arity}
	s.Reset()
	return s
}

// Arity returns the number of variables per state
func (s *TraceStore) Arity() int {
	return s.arity
}

// Append copies the states into the label's bucket as one trace. Empty
// traces are recorded too so trace indexes stay aligned with harness runs.
func (s *TraceStore) Append(label trace.Label, states [][]float64) error {
	if !label.Valid() {
		return fmt.Errorf("%w: %d", core.ErrUnknownLabel, int(label))
	}
	for i, st := range states {
		if len(st) != s.arity {
			return fmt.Errorf("state %d: %w", i, core.NewDimensionError("state", s.arity, len(st)))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.buckets[label]
	b.starts = append(b.starts, len(b.points))
	for _, st := range states {
		b.points = append(b.points, append([]float64(nil), st...))
	}
	return nil
}

// AppendTrace stores a labeled trace
func (s *TraceStore) AppendTrace(t trace.Trace) error {
	return s.Append(t.Label, t.Points())
}

// Reset drops every recorded state
func (s *TraceStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = make(map[trace.Label]*bucket, len(trace.Labels))
	for _, l := range trace.Labels {
		s.buckets[l] = &bucket{}
	}
}

// PositiveCount returns the number of positive states
func (s *TraceStore) PositiveCount() int {
	return s.stateCount(trace.Positive)
}

// NegativeCount returns the number of negative states
func (s *TraceStore) NegativeCount() int {
	return s.stateCount(trace.Negative)
}

// StateCount returns the number of states recorded under a label
func (s *TraceStore) StateCount(label trace.Label) int {
	return s.stateCount(label)
}

func (s *TraceStore) stateCount(label trace.Label) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.buckets[label]; ok {
		return len(b.points)
	}
	return 0
}

// TraceCount returns the number of traces recorded under a label
func (s *TraceStore) TraceCount(label trace.Label) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.buckets[label]; ok {
		return len(b.starts)
	}
	return 0
}

// TraceRange returns the flat range [start, end) of trace i
func (s *TraceStore) TraceRange(label trace.Label, i int) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[label]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %d", core.ErrUnknownLabel, int(label))
	}
	return b.rangeOf(i)
}

// PointAt returns the state at a flat index. The slice is shared with the
// store and must not be modified.
func (s *TraceStore) PointAt(label trace.Label, flat int) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[label]
	if !ok {
		return nil, fmt.Errorf("%w: %d", core.ErrUnknownLabel, int(label))
	}
	if flat < 0 || flat >= len(b.points) {
		return nil, fmt.Errorf("%w: state %d of %d", core.ErrIndexOutOfRange, flat, len(b.points))
	}
	return b.points[flat], nil
}

// Traces rebuilds every trace stored under a label
func (s *TraceStore) Traces(label trace.Label) ([]trace.Trace, error) {
	return ports.ReadTraces(s, label)
}
