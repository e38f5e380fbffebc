package equation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"invlearn/domain/core"

	"gonum.org/v1/gonum/floats"
)

// Hyperplane is the candidate invariant
//
//	c[0] + c[1]*m1(x) + ... + c[dim-1]*m{dim-1}(x) >= 0
//
// where m_i are the monomials of degree 1..Degree over Vars variables.
// The coefficient count is always Dimension(Vars, Degree).
type Hyperplane struct {
	vars         int
	degree       int
	coefficients []float64
}

// New returns a zero hyperplane over n variables.
func New(n, degree int) (*Hyperplane, error) {
	dim, err := Dimension(n, degree)
	if err != nil {
		return nil, err
	}
	return &Hyperplane{vars: n, degree: degree, coefficients: make([]float64, dim)}, nil
}

// FromCoefficients builds a hyperplane from an explicit coefficient vector,
// constant term first. The vector length must match Dimension(n, degree).
func FromCoefficients(n, degree int, coefficients []float64) (*Hyperplane, error) {
	h, err := New(n, degree)
	if err != nil {
		return nil, err
	}
	if err := h.SetCoefficients(coefficients); err != nil {
		return nil, err
	}
	return h, nil
}

// MustFromCoefficients is FromCoefficients for literals known to be valid.
func MustFromCoefficients(n, degree int, coefficients ...float64) *Hyperplane {
	h, err := FromCoefficients(n, degree, coefficients)
	if err != nil {
		panic(err)
	}
	return h
}

// Vars returns the number of program variables
func (h *Hyperplane) Vars() int { return h.vars }

// Degree returns the polynomial degree
func (h *Hyperplane) Degree() int { return h.degree }

// Dimension returns the number of coefficients, including the constant
func (h *Hyperplane) Dimension() int { return len(h.coefficients) }

// Constant returns c[0]
func (h *Hyperplane) Constant() float64 { return h.coefficients[0] }

// Coefficients returns a copy of the coefficient vector
func (h *Hyperplane) Coefficients() []float64 {
	return append([]float64(nil), h.coefficients...)
}

// Coefficient returns c[i]
func (h *Hyperplane) Coefficient(i int) (float64, error) {
	if i < 0 || i >= len(h.coefficients) {
		return 0, fmt.Errorf("%w: coefficient %d of %d", core.ErrIndexOutOfRange, i, len(h.coefficients))
	}
	return h.coefficients[i], nil
}

// SetCoefficient sets c[i]
func (h *Hyperplane) SetCoefficient(i int, v float64) error {
	if i < 0 || i >= len(h.coefficients) {
		return fmt.Errorf("%w: coefficient %d of %d", core.ErrIndexOutOfRange, i, len(h.coefficients))
	}
	h.coefficients[i] = v
	return nil
}

// SetCoefficients replaces the whole coefficient vector.
func (h *Hyperplane) SetCoefficients(values []float64) error {
	if len(values) != len(h.coefficients) {
		return core.NewDimensionError("coefficients", len(h.coefficients), len(values))
	}
	copy(h.coefficients, values)
	return nil
}

// SetDegree changes the degree and re-derives the dimension. Coefficients of
// monomials that exist at both degrees are kept; new ones start at zero.
func (h *Hyperplane) SetDegree(degree int) error {
	dim, err := Dimension(h.vars, degree)
	if err != nil {
		return err
	}
	resized := make([]float64, dim)
	copy(resized, h.coefficients)
	h.degree = degree
	h.coefficients = resized
	return nil
}

// SetDimension accepts only a dimension reachable from some degree and
// updates the degree to match.
func (h *Hyperplane) SetDimension(dim int) error {
	degree, err := DegreeForDimension(h.vars, dim)
	if err != nil {
		return err
	}
	return h.SetDegree(degree)
}

// Clone returns an independent copy
func (h *Hyperplane) Clone() *Hyperplane {
	return &Hyperplane{vars: h.vars, degree: h.degree, coefficients: h.Coefficients()}
}

// SameShape reports whether both hyperplanes live in the same feature space.
func (h *Hyperplane) SameShape(other *Hyperplane) bool {
	if h == nil || other == nil {
		return false
	}
	return h.vars == other.vars && h.degree == other.degree && len(h.coefficients) == len(other.coefficients)
}

// Evaluate returns c[0] + Σ c[i+1]*m_i(point) for a state vector of Vars
// entries.
func (h *Hyperplane) Evaluate(point []float64) (float64, error) {
	v, err := h.EvaluateHomogeneous(point)
	if err != nil {
		return 0, err
	}
	return h.coefficients[0] + v, nil
}

// EvaluateHomogeneous is Evaluate without the constant term.
func (h *Hyperplane) EvaluateHomogeneous(point []float64) (float64, error) {
	if point == nil {
		return 0, core.ErrNilPoint
	}
	if len(point) != h.vars {
		return 0, core.NewDimensionError("point", h.vars, len(point))
	}
	return floats.Dot(h.coefficients[1:], Expand(point, h.degree)), nil
}

// EvaluateFeatures evaluates against an already expanded feature vector.
func (h *Hyperplane) EvaluateFeatures(features []float64) (float64, error) {
	if features == nil {
		return 0, core.ErrNilPoint
	}
	if len(features) != len(h.coefficients)-1 {
		return 0, core.NewDimensionError("features", len(h.coefficients)-1, len(features))
	}
	return h.coefficients[0] + floats.Dot(h.coefficients[1:], features), nil
}

// Scale returns r*h.
func (h *Hyperplane) Scale(r float64) *Hyperplane {
	out := h.Clone()
	floats.Scale(r, out.coefficients)
	return out
}

// IsZero reports whether every non-constant coefficient is zero.
func (h *Hyperplane) IsZero() bool {
	for _, c := range h.coefficients[1:] {
		if c != 0 {
			return false
		}
	}
	return true
}

// IsFinite reports whether no coefficient is NaN or infinite.
func (h *Hyperplane) IsFinite() bool {
	for _, c := range h.coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Format renders the inequality with the given variable names.
func (h *Hyperplane) Format(vars Variables) string {
	names := vars.MonomialNames(h.degree)
	var b strings.Builder
	for i, c := range h.coefficients[1:] {
		if c == 0 {
			continue
		}
		writeTerm(&b, c, names[i])
	}
	if c0 := h.coefficients[0]; c0 != 0 || b.Len() == 0 {
		writeTerm(&b, c0, "")
	}
	b.WriteString(" >= 0")
	return b.String()
}

func writeTerm(b *strings.Builder, c float64, name string) {
	abs := math.Abs(c)
	switch {
	case b.Len() == 0 && c < 0:
		b.WriteString("-")
	case b.Len() > 0 && c < 0:
		b.WriteString(" - ")
	case b.Len() > 0:
		b.WriteString(" + ")
	}
	switch {
	case name == "":
		b.WriteString(strconv.FormatFloat(abs, 'g', -1, 64))
	case abs == 1:
		b.WriteString(name)
	default:
		b.WriteString(strconv.FormatFloat(abs, 'g', -1, 64))
		b.WriteString("*")
		b.WriteString(name)
	}
}

func (h *Hyperplane) String() string {
	return h.Format(DefaultVariables(h.vars))
}

type hyperplaneJSON struct {
	Vars         int       `json:"vars"`
	Degree       int       `json:"degree"`
	Coefficients []float64 `json:"coefficients"`
}

// MarshalJSON dumps the shape and coefficients
func (h *Hyperplane) MarshalJSON() ([]byte, error) {
	return json.Marshal(hyperplaneJSON{Vars: h.vars, Degree: h.degree, Coefficients: h.coefficients})
}

// UnmarshalJSON restores a hyperplane and validates its shape
func (h *Hyperplane) UnmarshalJSON(data []byte) error {
	var raw hyperplaneJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromCoefficients(raw.Vars, raw.Degree, raw.Coefficients)
	if err != nil {
		return err
	}
	*h = *parsed
	return nil
}
