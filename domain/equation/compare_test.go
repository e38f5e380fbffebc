package equation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApproximatelyEquals_ScaleInvariance(t *testing.T) {
	h := MustFromCoefficients(2, 1, -3, 1.5, 2)

	for _, r := range []float64{1, 2.5, 0.01, 1000} {
		assert.True(t, h.Scale(r).ApproximatelyEquals(h, DefaultPrecision), "r=%v", r)
		assert.True(t, h.ApproximatelyEquals(h.Scale(r), DefaultPrecision), "r=%v", r)
	}
	for _, r := range []float64{-1, -0.5} {
		assert.False(t, h.Scale(r).ApproximatelyEquals(h, DefaultPrecision), "r=%v", r)
	}
}

func TestApproximatelyEquals(t *testing.T) {
	base := MustFromCoefficients(2, 1, -3, 1, 2)

	tests := []struct {
		name  string
		other *Hyperplane
		want  bool
	}{
		{"identical", base.Clone(), true},
		{"within tolerance", MustFromCoefficients(2, 1, -3.002, 1, 2.001), true},
		{"outside tolerance", MustFromCoefficients(2, 1, -3, 1, 2.05), false},
		{"zero pattern differs", MustFromCoefficients(2, 1, -3, 1, 0), false},
		{"different shape", MustFromCoefficients(1, 1, -3, 1), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.ApproximatelyEquals(tt.other, DefaultPrecision))
		})
	}
}

func TestApproximatelyEquals_NoPivot(t *testing.T) {
	zero := MustFromCoefficients(1, 1, 0, 0)
	assert.False(t, zero.ApproximatelyEquals(zero.Clone(), DefaultPrecision))

	a := MustFromCoefficients(2, 1, 1, 0, 0)
	b := MustFromCoefficients(2, 1, 0, 1, 0)
	assert.False(t, a.ApproximatelyEquals(b, DefaultPrecision))
}
