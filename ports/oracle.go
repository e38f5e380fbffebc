package ports

import (
	"context"

	"invlearn/domain/equation"
)

// ImplicationOracle decides whether the conjunction of hypotheses >= 0
// entails conclusion >= 0 over real-valued monomials.
type ImplicationOracle interface {
	Implies(ctx context.Context, hypotheses []*equation.Hyperplane, conclusion *equation.Hyperplane) (bool, error)
}

var _ equation.Oracle = ImplicationOracle(nil)
