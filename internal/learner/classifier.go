package learner

import (
	"context"
	"errors"
	"fmt"

	"invlearn/domain/core"
	"invlearn/domain/equation"
	"invlearn/internal"
	"invlearn/ports"
)

// ModelConverter turns trained weights over the monomial features into a
// hyperplane over vars variables
type ModelConverter func(weights []float64, bias float64, vars, degree int) (*equation.Hyperplane, error)

// DefaultConverter places the bias in the constant slot and the weights
// after it, in monomial order
func DefaultConverter(weights []float64, bias float64, vars, degree int) (*equation.Hyperplane, error) {
	coefs := make([]float64, 0, len(weights)+1)
	coefs = append(coefs, bias)
	coefs = append(coefs, weights...)
	return equation.FromCoefficients(vars, degree, coefs)
}

// Classifier fits a hyperplane of a fixed degree to a training set
type Classifier struct {
	solver  ports.LinearClassifier
	vars    int
	degree  int
	convert ModelConverter
	logger  *internal.Logger
}

// NewClassifier wires a solver for states of vars variables
func NewClassifier(solver ports.LinearClassifier, vars, degree int) (*Classifier, error) {
	if solver == nil {
		return nil, fmt.Errorf("classifier solver cannot be nil")
	}
	if _, err := equation.Dimension(vars, degree); err != nil {
		return nil, err
	}
	return &Classifier{
		solver:  solver,
		vars:    vars,
		degree:  degree,
		convert: DefaultConverter,
		logger:  internal.DefaultLogger,
	}, nil
}

// WithConverter replaces the model conversion step
func (c *Classifier) WithConverter(convert ModelConverter) *Classifier {
	if convert != nil {
		c.convert = convert
	}
	return c
}

// WithLogger sets the logger
func (c *Classifier) WithLogger(logger *internal.Logger) *Classifier {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Degree returns the polynomial degree candidates are fitted at
func (c *Classifier) Degree() int { return c.degree }

// Train fits a hyperplane separating the positive prefix from the negative
// block. Both classes must be present.
func (c *Classifier) Train(ctx context.Context, ts *TrainingSet) (*equation.Hyperplane, error) {
	if ts == nil || ts.Len() == 0 {
		return nil, core.NewTrainingDataError("training set is empty")
	}
	if ts.Positives() == 0 || ts.Negatives() == 0 {
		return nil, core.NewTrainingDataError(fmt.Sprintf(
			"need both classes, have %d positive and %d negative", ts.Positives(), ts.Negatives()))
	}

	problem := &ports.Problem{
		Features: make([][]float64, ts.Len()),
		Labels:   make([]float64, ts.Len()),
		Bias:     1,
	}
	for i := 0; i < ts.Len(); i++ {
		s := ts.At(i)
		if len(s.Point) != c.vars {
			return nil, fmt.Errorf("%w: sample %d: %v", core.ErrInvalidTrainingData, i,
				core.NewDimensionError("state", c.vars, len(s.Point)))
		}
		problem.Features[i] = equation.Expand(s.Point, c.degree)
		problem.Labels[i] = float64(s.Label)
	}

	model, err := c.solver.Train(ctx, problem)
	if err != nil {
		if errors.Is(err, core.ErrInvalidTrainingData) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidTrainingData, err)
	}
	defer model.Release()

	h, err := c.convert(model.Weights(), model.Bias(), c.vars, c.degree)
	if err != nil {
		return nil, fmt.Errorf("convert model: %w", err)
	}
	if !h.IsFinite() {
		return nil, core.NewTrainingDataError("solver produced non-finite coefficients")
	}
	c.logger.Debug("[Classifier] trained on %d+%d samples: %s", ts.Positives(), ts.Negatives(), h)
	return h, nil
}
