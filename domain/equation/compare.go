package equation

import (
	"context"
	"fmt"

	"invlearn/domain/core"
)

// ApproximatelyEquals reports whether h is a positive multiple of other up to
// a relative tolerance of 10^-precision. The ratio is fixed by the first
// index where both coefficients are nonzero. Hyperplanes of different shape,
// with no common nonzero coefficient, or related by a negative ratio (the
// opposite half-space) are not equal.
func (h *Hyperplane) ApproximatelyEquals(other *Hyperplane, precision int) bool {
	if !h.SameShape(other) {
		return false
	}

	ratio := 0.0
	for i, c := range h.coefficients {
		if c != 0 && other.coefficients[i] != 0 {
			ratio = c / other.coefficients[i]
			break
		}
	}
	if ratio <= 0 {
		return false
	}

	tol := Tolerance(precision)
	down, up := ratio*(1-tol), ratio*(1+tol)
	for i, o := range other.coefficients {
		lo, hi := o*down, o*up
		if o < 0 {
			lo, hi = hi, lo
		}
		if c := h.coefficients[i]; c < lo || c > hi {
			return false
		}
	}
	return true
}

// Oracle decides linear entailment between hyperplane constraints.
type Oracle interface {
	Implies(ctx context.Context, hypotheses []*Hyperplane, conclusion *Hyperplane) (bool, error)
}

// ImpliedBy asks the oracle whether the conjunction of hypotheses >= 0 forces
// h >= 0 for every real assignment of the monomials.
func (h *Hyperplane) ImpliedBy(ctx context.Context, oracle Oracle, hypotheses []*Hyperplane) (bool, error) {
	if oracle == nil {
		return false, core.ErrOracleUnavailable
	}
	for i, hyp := range hypotheses {
		if !h.SameShape(hyp) {
			return false, fmt.Errorf("%w: hypothesis %d does not match conclusion shape", core.ErrDimensionMismatch, i)
		}
	}
	return oracle.Implies(ctx, hypotheses, h)
}
