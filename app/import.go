package app

import (
	"context"
	"fmt"
	"time"

	"invlearn/domain/equation"
	"invlearn/internal/convergence"
	"invlearn/models"
	"invlearn/ports"
)

func invariantRecord(r *Result, vars equation.Variables) *models.Invariant {
	inv := models.NewInvariant(r.SessionID, r.Program, vars, r.Invariant, r.Normalized)
	inv.Iterations = r.Iterations
	inv.Accuracy = r.Accuracy
	inv.Soundness = string(r.Soundness)
	return inv
}

// Import stores a result produced elsewhere, typically a JSON file written
// by the CLI. The session record is always saved; the invariant only when
// the result converged.
func Import(ctx context.Context, r *Result, invariants ports.InvariantRepository, sessions ports.SessionRepository) error {
	if r == nil || r.SessionID == "" {
		return fmt.Errorf("result has no session ID")
	}
	var metadata map[string]interface{}
	if r.Manifest != nil {
		metadata = r.Manifest.Metadata()
	}
	record := models.NewLearningSession(r.SessionID, r.Program, metadata)
	record.Metadata["source"] = "migration"
	if r.Manifest != nil && !r.Manifest.CreatedAt.IsZero() {
		record.StartedAt = r.Manifest.CreatedAt.Time().UTC()
		record.CreatedAt = record.StartedAt
	}
	switch r.Status {
	case convergence.Converged:
		record.Finish(models.SessionStatusConverged, r.Iterations, r.Readable)
	case convergence.Rejected:
		record.Finish(models.SessionStatusRejected, r.Iterations, r.Readable)
	default:
		record.Finish(models.SessionStatusFailed, r.Iterations, r.Readable)
	}
	if !record.StartedAt.IsZero() && r.RuntimeMs > 0 {
		completed := record.StartedAt.Add(time.Duration(r.RuntimeMs) * time.Millisecond)
		record.CompletedAt = &completed
	}

	if sessions != nil {
		if err := sessions.SaveSession(ctx, record); err != nil {
			return fmt.Errorf("save session %s: %w", r.SessionID, err)
		}
	}
	if invariants == nil || !r.Converged() {
		return nil
	}
	if r.Invariant == nil || r.Normalized == nil {
		return fmt.Errorf("converged result %s has no invariant", r.SessionID)
	}
	vars, err := equation.NewVariables(r.Variables...)
	if err != nil {
		return err
	}
	if err := invariants.Save(ctx, invariantRecord(r, vars)); err != nil {
		return fmt.Errorf("save invariant for %s: %w", r.SessionID, err)
	}
	return nil
}
