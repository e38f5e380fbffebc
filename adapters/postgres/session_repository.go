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

// SessionRepositoryImpl implements SessionRepository for PostgreSQL
type SessionRepositoryImpl struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(db *sqlx.DB) ports.SessionRepository {
	return &SessionRepositoryImpl{db: db}
}

const sessionColumns = `id, program, status, iterations, readable, error_message, metadata, started_at, completed_at, created_at, updated_at`

// SaveSession inserts a session or updates its progress
func (r *SessionRepositoryImpl) SaveSession(ctx context.Context, s *models.LearningSession) error {
	// JSONBMap implements driver.Valuer, so it will be automatically converted
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO learning_sessions (`+sessionColumns+`)
		VALUES (:id, :program, :status, :iterations, :readable, :error_message, :metadata, :started_at, :completed_at, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			iterations = EXCLUDED.iterations,
			readable = EXCLUDED.readable,
			error_message = EXCLUDED.error_message,
			completed_at = EXCLUDED.completed_at,
			updated_at = NOW()
	`, s)
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

// GetSession retrieves a session by ID
func (r *SessionRepositoryImpl) GetSession(ctx context.Context, id core.SessionID) (*models.LearningSession, error) {
	var s models.LearningSession
	err := r.db.GetContext(ctx, &s, `SELECT `+sessionColumns+` FROM learning_sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions returns sessions newest first. An empty program lists all.
func (r *SessionRepositoryImpl) ListSessions(ctx context.Context, program core.ProgramName, limit int) ([]*models.LearningSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM learning_sessions`
	var args []interface{}
	if program != "" {
		args = append(args, program)
		query += fmt.Sprintf(" WHERE program = $%d", len(args))
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var sessions []*models.LearningSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, err
	}
	return sessions, nil
}
