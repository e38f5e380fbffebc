package oracle

import (
	"context"
	"testing"

	"invlearn/domain/core"
	"invlearn/domain/equation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hp(coefs ...float64) *equation.Hyperplane {
	return equation.MustFromCoefficients(2, 1, coefs...)
}

func TestSimplex_Implies(t *testing.T) {
	xPos := hp(0, 1, 0)
	yPos := hp(0, 0, 1)

	tests := []struct {
		name       string
		hypotheses []*equation.Hyperplane
		conclusion *equation.Hyperplane
		want       bool
	}{
		{"sum of non-negatives", []*equation.Hyperplane{xPos, yPos}, hp(0, 1, 1), true},
		{"difference is unbounded", []*equation.Hyperplane{xPos, yPos}, hp(0, 1, -1), false},
		{"weakening the constant", []*equation.Hyperplane{hp(-3, 1, 0)}, hp(-1, 1, 0), true},
		{"strengthening the constant", []*equation.Hyperplane{hp(-1, 1, 0)}, hp(-3, 1, 0), false},
		{"unconstrained monomial", []*equation.Hyperplane{xPos}, hp(0, 0, 1), false},
		{"box implies diagonal", []*equation.Hyperplane{hp(-1, 1, 0), hp(-1, 0, 1)}, hp(-2, 1, 1), true},
		{"contradictory hypotheses", []*equation.Hyperplane{hp(-1, 1, 0), hp(0, -1, 0)}, hp(-1, 0, 0), true},
		{"false constant hypothesis", []*equation.Hyperplane{hp(-1, 0, 0)}, hp(0, 1, -1), true},
		{"true constant hypothesis dropped", []*equation.Hyperplane{hp(4, 0, 0)}, hp(0, 1, 0), false},
		{"no hypotheses, tautology", nil, hp(2, 0, 0), true},
		{"no hypotheses, contradiction", nil, hp(-2, 0, 0), false},
		{"no hypotheses, linear goal", nil, hp(0, 1, 0), false},
	}

	o := NewSimplex()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := o.Implies(context.Background(), tt.hypotheses, tt.conclusion)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSimplex_WithSlack(t *testing.T) {
	// min of x - 0.0005 over x >= 0 is -0.0005
	hypotheses := []*equation.Hyperplane{hp(0, 1, 0)}
	conclusion := hp(-0.0005, 1, 0)

	tests := []struct {
		name  string
		slack float64
		want  bool
	}{
		{"default slack", 0, false},
		{"tight slack", 1e-6, false},
		{"loose slack", 1e-3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewSimplex().WithSlack(tt.slack)
			if tt.slack == 0 {
				assert.Equal(t, defaultSlack, o.Slack())
			}
			got, err := o.Implies(context.Background(), hypotheses, conclusion)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSimplex_PinnedStateExclusion(t *testing.T) {
	// candidate x - 2 >= 0 together with x pinned to 5 is satisfiable,
	// with x pinned to 1 it is not
	candidate := equation.MustFromCoefficients(1, 1, -2, 1)
	falsum := equation.MustFromCoefficients(1, 1, -1, 0)
	pin := func(v float64) []*equation.Hyperplane {
		return []*equation.Hyperplane{
			candidate,
			equation.MustFromCoefficients(1, 1, -v, 1),
			equation.MustFromCoefficients(1, 1, v, -1),
		}
	}

	o := NewSimplex()
	got, err := o.Implies(context.Background(), pin(5), falsum)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = o.Implies(context.Background(), pin(1), falsum)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestSimplex_Errors(t *testing.T) {
	o := NewSimplex()

	_, err := o.Implies(context.Background(), []*equation.Hyperplane{equation.MustFromCoefficients(1, 1, 0, 1)}, hp(0, 1, 1))
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.Implies(ctx, nil, hp(0, 1, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHyperplane_ImpliedByDelegates(t *testing.T) {
	got, err := hp(0, 1, 1).ImpliedBy(context.Background(), NewSimplex(), []*equation.Hyperplane{hp(0, 1, 0), hp(0, 0, 1)})
	require.NoError(t, err)
	assert.True(t, got)

	_, err = hp(0, 1, 1).ImpliedBy(context.Background(), nil, nil)
	assert.ErrorIs(t, err, core.ErrOracleUnavailable)
}
