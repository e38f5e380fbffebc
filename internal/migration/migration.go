package migration

import (
	"context"

	"invlearn/internal"
	"invlearn/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
	logger  *internal.Logger
}

var _ Migrator = (*MigrationRunner)(nil)

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
		logger:  internal.DefaultLogger,
	}
}

// WithLogger sets the logger
func (r *MigrationRunner) WithLogger(logger *internal.Logger) *MigrationRunner {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

type step struct {
	name string
	sql  string
}

// steps lists the schema statements in the order Run applies them. Every
// statement is idempotent.
func steps() []step {
	return []step{
		{"create learning_sessions table", `
		CREATE TABLE IF NOT EXISTS learning_sessions (
			id TEXT PRIMARY KEY,
			program VARCHAR(100) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'running',
			iterations INTEGER NOT NULL DEFAULT 0,
			readable TEXT NOT NULL DEFAULT '',
			error_message TEXT,
			metadata JSONB,
			started_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			completed_at TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`},
		{"create invariants table", `
		CREATE TABLE IF NOT EXISTS invariants (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			program VARCHAR(100) NOT NULL,
			variables TEXT[] NOT NULL,
			degree INTEGER NOT NULL CHECK (degree >= 1),
			coefficients JSONB NOT NULL,
			normalized TEXT NOT NULL,
			iterations INTEGER NOT NULL DEFAULT 0,
			accuracy DOUBLE PRECISION NOT NULL DEFAULT 0,
			soundness VARCHAR(20) NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`},
		{"create schema_migrations table", `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`},
	}
}

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_sessions_program ON learning_sessions(program)",
	"CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON learning_sessions(started_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_invariants_program_created ON invariants(program, created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_invariants_session_id ON invariants(session_id)",
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, s := range steps() {
		if _, err := db.ExecContext(ctx, s.sql); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "failed to %s", s.name))
		}
	}

	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			// Log but don't fail on index creation errors
			r.logger.Warn("[Migration] failed to create index: %v", err)
		}
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`, r.version); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to record schema version"))
	}

	r.logger.Info("[Migration] schema at version %s", r.version)
	return nil
}
