package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"invlearn/domain/core"
	"invlearn/models"
	"invlearn/ports"

	"github.com/jmoiron/sqlx"
)

// InvariantRepositoryImpl implements InvariantRepository for PostgreSQL
type InvariantRepositoryImpl struct {
	db *sqlx.DB
}

// NewInvariantRepository creates a new PostgreSQL invariant repository
func NewInvariantRepository(db *sqlx.DB) ports.InvariantRepository {
	return &InvariantRepositoryImpl{db: db}
}

const invariantColumns = `id, session_id, program, variables, degree, coefficients, normalized, iterations, accuracy, soundness, created_at`

// Save inserts an invariant, replacing any row with the same ID
func (r *InvariantRepositoryImpl) Save(ctx context.Context, inv *models.Invariant) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO invariants (`+invariantColumns+`)
		VALUES (:id, :session_id, :program, :variables, :degree, :coefficients, :normalized, :iterations, :accuracy, :soundness, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			coefficients = EXCLUDED.coefficients,
			normalized = EXCLUDED.normalized,
			iterations = EXCLUDED.iterations,
			accuracy = EXCLUDED.accuracy,
			soundness = EXCLUDED.soundness
	`, inv)
	if err != nil {
		return fmt.Errorf("save invariant %s: %w", inv.ID, err)
	}
	return nil
}

// Get retrieves an invariant by ID
func (r *InvariantRepositoryImpl) Get(ctx context.Context, id core.InvariantID) (*models.Invariant, error) {
	var inv models.Invariant
	err := r.db.GetContext(ctx, &inv, `SELECT `+invariantColumns+` FROM invariants WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: invariant %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListByProgram returns the newest invariants for a program, optionally limited
func (r *InvariantRepositoryImpl) ListByProgram(ctx context.Context, program core.ProgramName, limit int) ([]*models.Invariant, error) {
	query := `SELECT ` + invariantColumns + ` FROM invariants WHERE program = $1 ORDER BY created_at DESC`
	args := []interface{}{program}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	var invariants []*models.Invariant
	if err := r.db.SelectContext(ctx, &invariants, query, args...); err != nil {
		return nil, err
	}
	return invariants, nil
}
