package ports

import (
	"context"

	"invlearn/domain/core"
	"invlearn/models"
)

// SessionRepository stores learning session summaries
type SessionRepository interface {
	// SaveSession inserts or updates a session by ID
	SaveSession(ctx context.Context, session *models.LearningSession) error

	// GetSession returns one session, core.ErrNotFound when missing
	GetSession(ctx context.Context, id core.SessionID) (*models.LearningSession, error)

	// ListSessions returns the newest sessions, optionally for one program
	ListSessions(ctx context.Context, program core.ProgramName, limit int) ([]*models.LearningSession, error)
}
