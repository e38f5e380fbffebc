// Package oracle decides linear entailment between hyperplanes with the
// simplex method.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"math"

	"invlearn/domain/core"
	"invlearn/domain/equation"
	"invlearn/internal"
	"invlearn/ports"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	defaultSimplexTol = 1e-10
	defaultSlack      = 1e-7
)

// Simplex treats every monomial as an independent real variable and decides
//
//	h_1 >= 0 ∧ ... ∧ h_k >= 0  ⇒  g >= 0
//
// by minimizing g over the polyhedron the hypotheses describe. The
// implication holds when the polyhedron is empty or the minimum is >= 0.
type Simplex struct {
	tol    float64
	slack  float64
	logger *internal.Logger
}

var _ ports.ImplicationOracle = (*Simplex)(nil)

// NewSimplex creates an oracle with default tolerances
func NewSimplex() *Simplex {
	return &Simplex{tol: defaultSimplexTol, slack: defaultSlack, logger: internal.DefaultLogger}
}

// WithSlack sets the absolute tolerance on the conclusion's minimum
func (o *Simplex) WithSlack(slack float64) *Simplex {
	if slack > 0 {
		o.slack = slack
	}
	return o
}

// Slack returns the tolerance Implies allows below zero
func (o *Simplex) Slack() float64 {
	return o.slack
}

// WithLogger sets the logger
func (o *Simplex) WithLogger(logger *internal.Logger) *Simplex {
	if logger != nil {
		o.logger = logger
	}
	return o
}

// Implies implements ports.ImplicationOracle
func (o *Simplex) Implies(ctx context.Context, hypotheses []*equation.Hyperplane, conclusion *equation.Hyperplane) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if conclusion == nil {
		return false, fmt.Errorf("%w: nil conclusion", core.ErrNilPoint)
	}

	var rows []*equation.Hyperplane
	for i, h := range hypotheses {
		if !conclusion.SameShape(h) {
			return false, fmt.Errorf("%w: hypothesis %d does not match conclusion shape", core.ErrDimensionMismatch, i)
		}
		if !h.IsFinite() {
			return false, core.NewOracleError(fmt.Errorf("hypothesis %d has non-finite coefficients", i))
		}
		if h.IsZero() {
			// A constant constraint is either always true or makes the
			// hypotheses unsatisfiable.
			if h.Constant() < 0 {
				return true, nil
			}
			continue
		}
		rows = append(rows, h)
	}

	goal := conclusion.Coefficients()
	if len(rows) == 0 {
		return conclusion.IsZero() && goal[0] >= 0, nil
	}

	// Keep only monomials some hypothesis constrains. An unconstrained
	// monomial with a nonzero goal weight makes the minimum unbounded
	// whenever the hypotheses are satisfiable.
	cols := make([]int, 0, len(goal)-1)
	unbounded := false
	for j := 1; j < len(goal); j++ {
		constrained := false
		for _, h := range rows {
			if c, _ := h.Coefficient(j); c != 0 {
				constrained = true
				break
			}
		}
		switch {
		case constrained:
			cols = append(cols, j)
		case goal[j] != 0:
			unbounded = true
		}
	}

	// h(m) >= 0  ⇔  -Σ a_j m_j <= a_0
	g := mat.NewDense(len(rows), len(cols), nil)
	bound := make([]float64, len(rows))
	for i, h := range rows {
		coefs := h.Coefficients()
		bound[i] = coefs[0]
		for k, j := range cols {
			g.Set(i, k, -coefs[j])
		}
	}
	cost := make([]float64, len(cols))
	for k, j := range cols {
		cost[k] = goal[j]
	}

	c, a, b := lp.Convert(cost, g, bound, nil, nil)
	optF, _, err := lp.Simplex(c, a, b, o.tol, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		o.logger.Trace("[Oracle] hypotheses infeasible, implication holds vacuously")
		return true, nil
	case unbounded:
		return false, nil
	case errors.Is(err, lp.ErrUnbounded):
		return false, nil
	case err != nil:
		o.logger.Debug("[Oracle] simplex failed: %v", err)
		return false, core.NewOracleError(err)
	}

	min := optF + goal[0]
	return min >= -o.slack*math.Max(1, math.Abs(goal[0])), nil
}
