package equation

import (
	"math"
	"math/rand"
)

// Bounds is the inclusive integer range program inputs are drawn from.
type Bounds struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Normalized returns the bounds with Min <= Max.
func (b Bounds) Normalized() Bounds {
	if b.Min > b.Max {
		return Bounds{Min: b.Max, Max: b.Min}
	}
	return b
}

// Contains reports whether v lies in the bounds
func (b Bounds) Contains(v float64) bool {
	return v >= float64(b.Min) && v <= float64(b.Max)
}

// RandomPoint draws a uniform integer point of the given size.
func RandomPoint(rng *rand.Rand, n int, b Bounds) []int {
	b = b.Normalized()
	point := make([]int, n)
	for i := range point {
		point[i] = rng.Intn(b.Max-b.Min+1) + b.Min
	}
	return point
}

// SolveForPoint looks for an integer point close to the hyperplane h = 0
// inside the bounds. Each attempt draws a random point, then recomputes one
// randomly picked coordinate from the equation with a small jitter of ±2.
// After maxAttempts failed attempts the last candidate is returned with
// ok == false. A nil or all-zero hyperplane yields a uniform random point;
// higher-degree hyperplanes cannot be solved coordinate-wise and also fall
// back to a random point with ok == false.
func SolveForPoint(h *Hyperplane, rng *rand.Rand, n int, b Bounds, maxAttempts int) ([]int, bool) {
	b = b.Normalized()
	if h == nil || h.IsZero() {
		return RandomPoint(rng, n, b), true
	}
	if h.degree != 1 || h.vars != n {
		return RandomPoint(rng, n, b), false
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var point []int
	for attempt := 0; attempt < maxAttempts; attempt++ {
		pick := rng.Intn(n)
		for h.coefficients[pick+1] == 0 {
			pick = (pick + 1) % n
		}

		point = RandomPoint(rng, n, b)
		remainder := -h.coefficients[0]
		for i, v := range point {
			if i != pick {
				remainder -= float64(v) * h.coefficients[i+1]
			}
		}
		solved := math.Trunc(remainder/h.coefficients[pick+1]) + float64(rng.Intn(5)-2)
		if !b.Contains(solved) {
			continue
		}
		point[pick] = int(solved)
		return point, true
	}
	return point, false
}
