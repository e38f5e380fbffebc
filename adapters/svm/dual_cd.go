// Package svm trains L1-loss linear support vector machines with dual
// coordinate descent.
package svm

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"invlearn/domain/core"
	"invlearn/internal"
	"invlearn/ports"

	"gonum.org/v1/gonum/floats"
)

// Config holds solver parameters
type Config struct {
	// C is the misclassification penalty; large values approach a hard margin.
	C float64
	// Tolerance bounds the projected-gradient spread at convergence.
	Tolerance float64
	// MaxPasses caps the number of sweeps over the data.
	MaxPasses int
	// Seed fixes the coordinate visiting order.
	Seed int64
}

// DefaultConfig returns near-hard-margin settings
func DefaultConfig() Config {
	return Config{
		C:         100,
		Tolerance: 1e-3,
		MaxPasses: 2000,
		Seed:      1,
	}
}

// workspace is the per-training scratch memory
type workspace struct {
	weights []float64 // width + 1, bias weight last
	alpha   []float64
	qdiag   []float64
	order   []int
}

func (w *workspace) reset(n, width int) {
	w.weights = resize(w.weights, width+1)
	w.alpha = resize(w.alpha, n)
	w.qdiag = resize(w.qdiag, n)
	if cap(w.order) < n {
		w.order = make([]int, n)
	}
	w.order = w.order[:n]
	for i := range w.order {
		w.order[i] = i
	}
}

func resize(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	s = s[:n]
	for i := range s {
		s[i] = 0
	}
	return s
}

// Solver implements ports.LinearClassifier
type Solver struct {
	cfg    Config
	pool   sync.Pool
	logger *internal.Logger
}

var _ ports.LinearClassifier = (*Solver)(nil)

// NewSolver creates a solver; zero fields of cfg fall back to DefaultConfig
func NewSolver(cfg Config) *Solver {
	def := DefaultConfig()
	if cfg.C <= 0 {
		cfg.C = def.C
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.MaxPasses <= 0 {
		cfg.MaxPasses = def.MaxPasses
	}
	s := &Solver{cfg: cfg, logger: internal.DefaultLogger}
	s.pool.New = func() interface{} { return &workspace{} }
	return s
}

// WithLogger sets the logger
func (s *Solver) WithLogger(logger *internal.Logger) *Solver {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Config returns the effective solver parameters
func (s *Solver) Config() Config {
	return s.cfg
}

// Validate checks the problem before training
func Validate(p *ports.Problem) error {
	if p == nil || p.Len() == 0 {
		return fmt.Errorf("%w: empty problem", core.ErrInvalidTrainingData)
	}
	if len(p.Features) != len(p.Labels) {
		return fmt.Errorf("%w: %d feature rows for %d labels", core.ErrInvalidTrainingData, len(p.Features), len(p.Labels))
	}
	width := p.Width()
	if width == 0 {
		return fmt.Errorf("%w: no features", core.ErrInvalidTrainingData)
	}
	var pos, neg bool
	for i, row := range p.Features {
		if len(row) != width {
			return fmt.Errorf("%w: row %d: %v", core.ErrInvalidTrainingData, i, core.NewDimensionError("features", width, len(row)))
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: row %d has a non-finite feature", core.ErrInvalidTrainingData, i)
			}
		}
		switch p.Labels[i] {
		case 1:
			pos = true
		case -1:
			neg = true
		default:
			return fmt.Errorf("%w: label %v at row %d", core.ErrInvalidTrainingData, p.Labels[i], i)
		}
	}
	if !pos || !neg {
		return fmt.Errorf("%w: both classes are required", core.ErrInvalidTrainingData)
	}
	return nil
}

// Train runs dual coordinate descent on
//
//	min_a  1/2 a'Qa - e'a   s.t. 0 <= a_i <= C,  Q_ij = y_i y_j x_i'x_j
//
// with the bias folded in as an extra constant feature.
func (s *Solver) Train(ctx context.Context, p *ports.Problem) (ports.Model, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}

	n, width := p.Len(), p.Width()
	ws := s.pool.Get().(*workspace)
	ws.reset(n, width)

	bias := p.Bias
	if bias < 0 {
		bias = 0
	}
	for i, x := range p.Features {
		ws.qdiag[i] = floats.Dot(x, x) + bias*bias
	}

	rng := rand.New(rand.NewSource(s.cfg.Seed))
	w := ws.weights[:width]
	passes := 0
	for ; passes < s.cfg.MaxPasses; passes++ {
		if passes%64 == 0 {
			if err := ctx.Err(); err != nil {
				s.pool.Put(ws)
				return nil, err
			}
		}
		rng.Shuffle(n, func(i, j int) { ws.order[i], ws.order[j] = ws.order[j], ws.order[i] })

		maxPG, minPG := math.Inf(-1), math.Inf(1)
		for _, i := range ws.order {
			qii := ws.qdiag[i]
			if qii <= 0 {
				continue
			}
			x, y := p.Features[i], p.Labels[i]
			g := y*(floats.Dot(w, x)+ws.weights[width]*bias) - 1

			a := ws.alpha[i]
			pg := g
			switch {
			case a == 0:
				pg = math.Min(g, 0)
			case a >= s.cfg.C:
				pg = math.Max(g, 0)
			}
			maxPG = math.Max(maxPG, pg)
			minPG = math.Min(minPG, pg)
			if math.Abs(pg) <= 1e-12 {
				continue
			}

			next := math.Min(math.Max(a-g/qii, 0), s.cfg.C)
			step := (next - a) * y
			ws.alpha[i] = next
			floats.AddScaled(w, step, x)
			ws.weights[width] += step * bias
		}

		if maxPG-minPG <= s.cfg.Tolerance {
			break
		}
	}
	if passes == s.cfg.MaxPasses {
		s.logger.Debug("[SVM] reached %d passes without meeting tolerance %g", passes, s.cfg.Tolerance)
	}

	return &model{ws: ws, width: width, bias: bias, pool: &s.pool}, nil
}

// model is a view over a pooled workspace
type model struct {
	once  sync.Once
	ws    *workspace
	width int
	bias  float64
	pool  *sync.Pool
}

func (m *model) Weights() []float64 {
	return append([]float64(nil), m.ws.weights[:m.width]...)
}

func (m *model) Bias() float64 {
	return m.ws.weights[m.width] * m.bias
}

func (m *model) Release() {
	m.once.Do(func() {
		m.pool.Put(m.ws)
	})
}
