package equation

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultPrecision is the number of decimal digits used for rounding and
// comparison: tolerances are 10^-DefaultPrecision.
const DefaultPrecision = 3

// constantScaleRatio caps how much smaller than the chosen scale a constant
// term may be and still become the scale itself.
const constantScaleRatio = 1000

// ScaleSource records which rule picked the normalization divisor.
type ScaleSource string

const (
	ScaleMinCoefficient    ScaleSource = "min_coefficient"
	ScaleSecondCoefficient ScaleSource = "second_coefficient"
	ScaleConstant          ScaleSource = "constant"
	ScaleDefault           ScaleSource = "default"
)

// Scale is the positive divisor Normalize applied.
type Scale struct {
	Value  float64     `json:"value"`
	Source ScaleSource `json:"source"`
}

// Defaulted reports whether no coefficient could serve as the scale and the
// safe default of 1 was used instead.
func (s Scale) Defaulted() bool {
	return s.Source == ScaleDefault
}

// Tolerance returns 10^-precision.
func Tolerance(precision int) float64 {
	return math.Pow(10, -float64(precision))
}

// Normalize rescales h into a readable, small-integer-like form using
// DefaultPrecision. See NormalizeTo.
func (h *Hyperplane) Normalize() (*Hyperplane, Scale) {
	return h.NormalizeTo(DefaultPrecision)
}

// NormalizeTo divides every coefficient by a positive scale and snaps the
// results. The scale is the smallest nonzero non-constant magnitude, or the
// second smallest when the smallest is below 10^-precision of it, or the
// constant's magnitude when that lies within [scale/1000, scale). When every
// non-constant coefficient is zero the scale defaults to 1.
//
// Snapping can move a coefficient across one of those thresholds, so the
// step is repeated until it reaches a fixed point or revisits an earlier
// result. On a cycle the member with the smallest coefficient mass is
// returned, which keeps NormalizeTo idempotent. The returned Scale carries
// the rule of the first step and the overall divisor.
func (h *Hyperplane) NormalizeTo(precision int) (*Hyperplane, Scale) {
	tol := Tolerance(precision)

	first := pickScale(h.coefficients, tol)
	orbit := []normalizeStep{{coefficients: h.Coefficients(), divisor: 1}}
	for pass := 0; pass < maxNormalizePasses; pass++ {
		cur := orbit[len(orbit)-1]
		s := pickScale(cur.coefficients, tol)
		next := normalizeStep{coefficients: snapDivide(cur.coefficients, s.Value, tol), divisor: cur.divisor * s.Value}
		for j := range orbit {
			if sameCoefficients(orbit[j].coefficients, next.coefficients) {
				if j == len(orbit)-1 {
					// fixed point; next is the snapped form of cur
					return h.withStep(next), Scale{Value: next.divisor, Source: first.Source}
				}
				best := canonicalStep(orbit[j:])
				return h.withStep(best), Scale{Value: best.divisor, Source: first.Source}
			}
		}
		orbit = append(orbit, next)
	}
	last := orbit[len(orbit)-1]
	return h.withStep(last), Scale{Value: last.divisor, Source: first.Source}
}

// maxNormalizePasses bounds the fixed-point search in NormalizeTo.
const maxNormalizePasses = 32

type normalizeStep struct {
	coefficients []float64
	divisor      float64
}

func (h *Hyperplane) withStep(s normalizeStep) *Hyperplane {
	return &Hyperplane{vars: h.vars, degree: h.degree, coefficients: append([]float64(nil), s.coefficients...)}
}

// pickScale applies the scale rules to one coefficient vector.
func pickScale(coefficients []float64, tol float64) Scale {
	first, second := math.Inf(1), math.Inf(1)
	for _, c := range coefficients[1:] {
		a := math.Abs(c)
		if a == 0 || math.IsNaN(a) || math.IsInf(a, 0) {
			continue
		}
		if a < first {
			first, second = a, first
		} else if a < second {
			second = a
		}
	}

	scale := Scale{Value: 1, Source: ScaleDefault}
	if !math.IsInf(first, 1) {
		scale = Scale{Value: first, Source: ScaleMinCoefficient}
		if !math.IsInf(second, 1) && first/second <= tol {
			scale = Scale{Value: second, Source: ScaleSecondCoefficient}
		}
	}
	if c0 := math.Abs(coefficients[0]); c0 < scale.Value && constantScaleRatio*c0 >= scale.Value {
		scale = Scale{Value: c0, Source: ScaleConstant}
	}
	return scale
}

func snapDivide(coefficients []float64, by, tol float64) []float64 {
	out := make([]float64, len(coefficients))
	for i, c := range coefficients {
		out[i] = Snap(c/by, tol)
	}
	return out
}

// sameCoefficients compares up to a few ulps of relative error, so that a
// cycle recomputed through divisions is still recognised.
func sameCoefficients(a, b []float64) bool {
	return floats.EqualFunc(a, b, func(x, y float64) bool {
		return x == y || math.Abs(x-y) <= orbitTolerance*math.Max(math.Abs(x), math.Abs(y))
	})
}

const orbitTolerance = 1e-12

// canonicalStep picks the cycle member with the smallest L1 norm, breaking
// ties lexicographically.
func canonicalStep(cycle []normalizeStep) normalizeStep {
	best := cycle[0]
	bestNorm := floats.Norm(best.coefficients, 1)
	for _, s := range cycle[1:] {
		n := floats.Norm(s.coefficients, 1)
		switch {
		case n < bestNorm*(1-orbitTolerance):
			best, bestNorm = s, n
		case n <= bestNorm*(1+orbitTolerance) && lexLess(s.coefficients, best.coefficients):
			best, bestNorm = s, n
		}
	}
	return best
}

func lexLess(a, b []float64) bool {
	for i := range a {
		if sameCoefficients(a[i:i+1], b[i:i+1]) {
			continue
		}
		return a[i] < b[i]
	}
	return false
}

// StandardForm divides by the magnitude of the first nonzero non-constant
// coefficient (the constant when it is the only nonzero term) and snaps.
// The orientation of the inequality is preserved and the result is a fixed
// point: StandardForm(StandardForm(h)) == StandardForm(h).
func (h *Hyperplane) StandardForm() *Hyperplane {
	pivot := 0.0
	for _, c := range h.coefficients[1:] {
		if c != 0 {
			pivot = math.Abs(c)
			break
		}
	}
	if pivot == 0 {
		pivot = math.Abs(h.coefficients[0])
	}
	out := h.Clone()
	if pivot == 0 || math.IsNaN(pivot) || math.IsInf(pivot, 0) {
		return out
	}
	tol := Tolerance(DefaultPrecision)
	for i, c := range out.coefficients {
		out.coefficients[i] = Snap(c/pivot, tol)
	}
	return out
}

// Snap rounds x to the nearest integer when that integer is within a
// relative tolerance of x, and to zero when |x| <= tol. Other values are
// returned unchanged.
func Snap(x, tol float64) float64 {
	n := math.RoundToEven(x)
	if math.Abs(n-x) <= tol*math.Abs(x) {
		if n == 0 {
			return 0
		}
		return n
	}
	if math.Abs(x) <= tol {
		return 0
	}
	return x
}
