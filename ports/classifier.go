package ports

import (
	"context"
)

// Problem is a binary linear classification task: one feature row per
// sample, labels in {+1, -1}.
type Problem struct {
	Features [][]float64
	Labels   []float64
	// Bias is the value of the implicit constant feature; <= 0 disables it.
	Bias float64
}

// Len returns the number of samples
func (p *Problem) Len() int {
	return len(p.Labels)
}

// Width returns the feature count of the first row, or 0 when empty
func (p *Problem) Width() int {
	if len(p.Features) == 0 {
		return 0
	}
	return len(p.Features[0])
}

// Model is a trained linear separator. Callers must Release it once they
// have read the weights; the solver may recycle its memory afterwards.
type Model interface {
	// Weights returns one weight per feature
	Weights() []float64

	// Bias returns the intercept, already multiplied by Problem.Bias
	Bias() float64

	// Release hands internal buffers back to the solver
	Release()
}

// LinearClassifier trains a separating hyperplane.
type LinearClassifier interface {
	Train(ctx context.Context, problem *Problem) (Model, error)
}
