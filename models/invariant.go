package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"invlearn/domain/core"
	"invlearn/domain/equation"

	"github.com/lib/pq"
)

// Coefficients is a []float64 stored in a PostgreSQL JSONB column
type Coefficients []float64

// Value implements driver.Valuer interface
func (c Coefficients) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]float64(c))
}

// Scan implements sql.Scanner interface
func (c *Coefficients) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported coefficients column type %T", value)
	}
	if len(bytes) == 0 {
		*c = nil
		return nil
	}
	var out []float64
	if err := json.Unmarshal(bytes, &out); err != nil {
		return err
	}
	*c = out
	return nil
}

// Invariant is an accepted, converged hyperplane together with where it came from
type Invariant struct {
	ID           core.InvariantID `json:"id" db:"id"`
	SessionID    core.SessionID   `json:"session_id" db:"session_id"`
	Program      core.ProgramName `json:"program" db:"program"`
	Variables    pq.StringArray   `json:"variables" db:"variables"`
	Degree       int              `json:"degree" db:"degree"`
	Coefficients Coefficients     `json:"coefficients" db:"coefficients"`
	Normalized   string           `json:"normalized" db:"normalized"`
	Iterations   int              `json:"iterations" db:"iterations"`
	Accuracy     float64          `json:"accuracy" db:"accuracy"`
	Soundness    string           `json:"soundness" db:"soundness"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}

// NewInvariant snapshots a learned hyperplane and the readable text of its
// normalized form. The stored coefficients are copied.
func NewInvariant(session core.SessionID, program core.ProgramName, vars equation.Variables, h, normalized *equation.Hyperplane) *Invariant {
	return &Invariant{
		ID:           core.InvariantID(core.NewID()),
		SessionID:    session,
		Program:      program,
		Variables:    vars.Names(),
		Degree:       h.Degree(),
		Coefficients: h.Coefficients(),
		Normalized:   normalized.Format(vars),
		CreatedAt:    time.Now().UTC(),
	}
}

// Hyperplane rebuilds the stored equation
func (i *Invariant) Hyperplane() (*equation.Hyperplane, error) {
	return equation.FromCoefficients(len(i.Variables), i.Degree, i.Coefficients)
}
