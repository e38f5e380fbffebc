package equation

import (
	"fmt"
	"sync"

	"invlearn/domain/core"

	"gonum.org/v1/gonum/stat/combin"
)

const (
	// MinDegree and MaxDegree bound the polynomial expansion of a hyperplane.
	MinDegree = 1
	MaxDegree = 4
)

// Dimension is the number of coefficients of a degree-d hyperplane over n
// variables: the count of monomials of degree 0..d, Σ C(n+k-1, k).
func Dimension(n, degree int) (int, error) {
	if n < 1 {
		return 0, fmt.Errorf("%w: %d", core.ErrInvalidVariables, n)
	}
	if degree < MinDegree || degree > MaxDegree {
		return 0, fmt.Errorf("%w: %d (want %d..%d)", core.ErrInvalidDegree, degree, MinDegree, MaxDegree)
	}
	dim := 0
	for k := 0; k <= degree; k++ {
		dim += combin.Binomial(n+k-1, k)
	}
	return dim, nil
}

// DegreeForDimension inverts Dimension for a fixed variable count.
func DegreeForDimension(n, dim int) (int, error) {
	for d := MinDegree; d <= MaxDegree; d++ {
		want, err := Dimension(n, d)
		if err != nil {
			return 0, err
		}
		if want == dim {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: no degree in %d..%d yields %d coefficients over %d variables",
		core.ErrDimensionMismatch, MinDegree, MaxDegree, dim, n)
}

type monomialKey struct{ n, degree int }

var monomialCache sync.Map // monomialKey -> [][]int

// Monomials lists the non-constant monomials of degree 1..d over n variables.
// Each monomial is the sorted list of variable indices it multiplies, ordered
// by degree and then lexicographically: x, y, x^2, x*y, y^2, ...
func Monomials(n, degree int) [][]int {
	key := monomialKey{n, degree}
	if cached, ok := monomialCache.Load(key); ok {
		return cached.([][]int)
	}
	var out [][]int
	for k := 1; k <= degree; k++ {
		out = appendCombinations(out, make([]int, 0, k), 0, n, k)
	}
	monomialCache.Store(key, out)
	return out
}

func appendCombinations(out [][]int, prefix []int, start, n, k int) [][]int {
	if len(prefix) == k {
		return append(out, append([]int(nil), prefix...))
	}
	for i := start; i < n; i++ {
		out = appendCombinations(out, append(prefix, i), i, n, k)
	}
	return out
}

// Expand maps a state vector to its monomial features for the given degree.
// Degree 1 returns a copy of the point.
func Expand(point []float64, degree int) []float64 {
	if degree <= 1 {
		return append([]float64(nil), point...)
	}
	monos := Monomials(len(point), degree)
	features := make([]float64, len(monos))
	for i, mono := range monos {
		v := 1.0
		for _, idx := range mono {
			v *= point[idx]
		}
		features[i] = v
	}
	return features
}
