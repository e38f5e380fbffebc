package equation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveForPoint_NearHyperplane(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	h := MustFromCoefficients(2, 1, -10, 1, 1)
	bounds := Bounds{Min: -20, Max: 20}

	for i := 0; i < 50; i++ {
		point, ok := SolveForPoint(h, rng, 2, bounds, 10)
		require.True(t, ok)
		require.Len(t, point, 2)

		v, err := h.Evaluate([]float64{float64(point[0]), float64(point[1])})
		require.NoError(t, err)
		assert.LessOrEqual(t, v, 3.0)
		assert.GreaterOrEqual(t, v, -3.0)
		for _, c := range point {
			assert.True(t, bounds.Contains(float64(c)))
		}
	}
}

func TestSolveForPoint_Fallbacks(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	bounds := Bounds{Min: 5, Max: -5}

	point, ok := SolveForPoint(nil, rng, 3, bounds, 10)
	assert.True(t, ok)
	assert.Len(t, point, 3)
	for _, c := range point {
		assert.True(t, bounds.Normalized().Contains(float64(c)))
	}

	// x - 1000 = 0 has no solution in [-5, 5]
	far := MustFromCoefficients(1, 1, -1000, 1)
	point, ok = SolveForPoint(far, rng, 1, bounds, 4)
	assert.False(t, ok)
	assert.Len(t, point, 1)

	quadratic := MustFromCoefficients(1, 2, 0, 1, 1)
	_, ok = SolveForPoint(quadratic, rng, 1, bounds, 4)
	assert.False(t, ok)
}
