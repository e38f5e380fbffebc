package container

import (
	"context"
	"fmt"

	"invlearn/adapters/oracle"
	"invlearn/adapters/postgres"
	"invlearn/adapters/rng"
	"invlearn/adapters/svm"
	"invlearn/app"
	"invlearn/internal"
	"invlearn/internal/api"
	"invlearn/internal/config"
	"invlearn/internal/migration"
	"invlearn/ports"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories; nil when no database is configured
	InvariantRepo ports.InvariantRepository
	SessionRepo   ports.SessionRepository

	// Learning components
	Solver   *svm.Solver
	Oracle   *oracle.Simplex
	Learning *app.LearningService
	Batch    *app.BatchService

	// HTTP components, built by InitAPI
	SSEHub      *api.SSEHub
	Broadcaster *api.ProgressBroadcaster
	Sessions    *api.SessionHandler
	Router      *gin.Engine
}

// New creates a new dependency injection container and wires the learning
// services. Persistence is attached separately by InitWithDatabase.
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}
	c.initLearning()
	return c, nil
}

// Open builds a container and, when DATABASE_URL is set, connects and
// migrates the database.
func Open(ctx context.Context, cfg *config.Config, logger *internal.Logger) (*Container, error) {
	c, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if !cfg.Database.Enabled() {
		c.Logger.Info("[Container] DATABASE_URL not set; results are kept in memory only")
		return c, nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migration.NewRunner().WithLogger(c.Logger).Run(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := c.InitWithDatabase(db); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) initLearning() {
	lc := c.Config.Learning
	c.Solver = svm.NewSolver(svm.Config{
		C:         lc.SolverC,
		Tolerance: lc.SolverTolerance,
		MaxPasses: lc.SolverMaxPasses,
		Seed:      lc.Seed,
	}).WithLogger(c.Logger)
	c.Oracle = oracle.NewSimplex().WithSlack(lc.OracleSlack).WithLogger(c.Logger)

	c.Learning = app.NewLearningService(c.Solver, c.Oracle, nil, rng.New(), lc).WithLogger(c.Logger)
	c.Batch = app.NewBatchService(c.Learning, c.Config.Batch.Parallelism).WithLogger(c.Logger)
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	c.DB = db

	// Test database connection
	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.InvariantRepo = postgres.NewInvariantRepository(db)
	c.SessionRepo = postgres.NewSessionRepository(db)
	c.Learning.WithRepository(c.InvariantRepo).WithSessionRepository(c.SessionRepo)

	c.Logger.Info("[Container] initialized with database connection")
	return nil
}

// InitAPI builds the SSE hub, progress broadcaster and gin router. Sessions
// started over HTTP run under baseCtx.
func (c *Container) InitAPI(baseCtx context.Context) *gin.Engine {
	c.SSEHub = api.NewSSEHub(c.Logger)
	c.Broadcaster = api.NewProgressBroadcaster(c.SSEHub, c.Config.Learning.MaxIterations)
	c.Learning.WithObserver(c.Broadcaster.Observe)

	c.Sessions = api.NewSessionHandler(baseCtx, c.Learning, c.InvariantRepo, c.SessionRepo, c.Broadcaster, c.Config.Learning.Timeout).
		WithLogger(c.Logger)
	c.Router = api.NewRouter(c.Sessions, c.SSEHub, c.Logger)
	return c.Router
}

// Shutdown waits for running HTTP sessions, stops the hub and closes the
// database
func (c *Container) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		if c.Sessions != nil {
			c.Sessions.Wait()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.Logger.Warn("[Container] shutdown timed out waiting for sessions")
	}

	if c.SSEHub != nil {
		c.SSEHub.Close()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
