// Package convergence decides when the learning loop may stop and drives
// its state transitions.
package convergence

import (
	"context"
	"errors"
	"fmt"

	"invlearn/domain/core"
	"invlearn/domain/equation"
	"invlearn/domain/trace"
	"invlearn/domain/verdict"
)

// HasConverged reports whether current is a positive multiple of previous
// within 10^-precision. A nil previous means this is the first accepted
// candidate.
func HasConverged(current, previous *equation.Hyperplane, precision int) (bool, error) {
	if previous == nil {
		return false, nil
	}
	if current == nil {
		return false, fmt.Errorf("%w: nil current candidate", core.ErrNilPoint)
	}
	if !current.SameShape(previous) {
		return false, fmt.Errorf("%w: candidate over %d vars at degree %d, previous over %d vars at degree %d",
			core.ErrDimensionMismatch, current.Vars(), current.Degree(), previous.Vars(), previous.Degree())
	}
	return current.ApproximatelyEquals(previous, precision), nil
}

// SoundnessReport is the result of CheckSoundness
type SoundnessReport struct {
	Status     verdict.Soundness `json:"status"`
	TraceIndex int               `json:"trace_index"`
	Err        error             `json:"-"`
}

// PinState returns the constraints fixing every monomial of the candidate's
// feature space to its value at point, as pairs m - v >= 0 and v - m >= 0.
func PinState(candidate *equation.Hyperplane, point []float64) ([]*equation.Hyperplane, error) {
	if len(point) != candidate.Vars() {
		return nil, core.NewDimensionError("state", candidate.Vars(), len(point))
	}
	features := equation.Expand(point, candidate.Degree())
	pins := make([]*equation.Hyperplane, 0, 2*len(features))
	for j, v := range features {
		lower, err := equation.New(candidate.Vars(), candidate.Degree())
		if err != nil {
			return nil, err
		}
		upper := lower.Clone()
		_ = lower.SetCoefficient(0, -v)
		_ = lower.SetCoefficient(j+1, 1)
		_ = upper.SetCoefficient(0, v)
		_ = upper.SetCoefficient(j+1, -1)
		pins = append(pins, lower, upper)
	}
	return pins, nil
}

// CheckSoundness asks the oracle, for the final state of every
// counterexample trace, whether the candidate together with that state is
// unsatisfiable. A satisfiable pair means the candidate admits a state that
// broke the postcondition and is rejected. Oracle failures leave the
// candidate unverified without rejecting it.
func CheckSoundness(ctx context.Context, oracle equation.Oracle, candidate *equation.Hyperplane, counterexamples []trace.Trace) SoundnessReport {
	if len(counterexamples) == 0 {
		return SoundnessReport{Status: verdict.SoundnessVacuous, TraceIndex: -1}
	}
	if oracle == nil {
		return SoundnessReport{Status: verdict.SoundnessUnverified, TraceIndex: -1, Err: core.ErrOracleUnavailable}
	}

	falsum, err := equation.New(candidate.Vars(), candidate.Degree())
	if err != nil {
		return SoundnessReport{Status: verdict.SoundnessUnverified, TraceIndex: -1, Err: err}
	}
	_ = falsum.SetCoefficient(0, -1)

	for i, t := range counterexamples {
		last := t.Last()
		if last == nil {
			continue
		}
		pins, err := PinState(candidate, last)
		if err != nil {
			return SoundnessReport{Status: verdict.SoundnessUnverified, TraceIndex: i, Err: err}
		}
		excluded, err := falsum.ImpliedBy(ctx, oracle, append([]*equation.Hyperplane{candidate}, pins...))
		if err != nil {
			if !errors.Is(err, core.ErrOracleUnavailable) && ctx.Err() == nil {
				err = core.NewOracleError(err)
			}
			return SoundnessReport{Status: verdict.SoundnessUnverified, TraceIndex: i, Err: err}
		}
		if !excluded {
			return SoundnessReport{Status: verdict.SoundnessRejected, TraceIndex: i}
		}
	}
	return SoundnessReport{Status: verdict.SoundnessVerified, TraceIndex: -1}
}
