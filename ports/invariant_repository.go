package ports

import (
	"context"

	"invlearn/domain/core"
	"invlearn/models"
)

// InvariantRepository stores accepted invariants
type InvariantRepository interface {
	// Save inserts or replaces an invariant by ID
	Save(ctx context.Context, inv *models.Invariant) error

	// Get returns one invariant, core.ErrNotFound when missing
	Get(ctx context.Context, id core.InvariantID) (*models.Invariant, error)

	// ListByProgram returns the newest invariants learned for a program
	ListByProgram(ctx context.Context, program core.ProgramName, limit int) ([]*models.Invariant, error)
}
