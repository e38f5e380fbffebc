// Package ui serves the HTML report browser and mounts the JSON API.
package ui

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"invlearn/app"
	"invlearn/internal"
	"invlearn/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// App represents the UI application
type App struct {
	router     *chi.Mux
	learning   *app.LearningService
	invariants ports.InvariantRepository
	templates  *template.Template
	config     Config
	logger     *internal.Logger
}

// Config holds UI application configuration
type Config struct {
	Port string
	// API serves everything under /api and /healthz; nil leaves them unrouted.
	API http.Handler
}

// NewApp creates a new UI application. invariants may be nil.
func NewApp(config Config, learning *app.LearningService, invariants ports.InvariantRepository, logger *internal.Logger) (*App, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	a := &App{
		router:     chi.NewRouter(),
		learning:   learning,
		invariants: invariants,
		templates:  templates,
		config:     config,
		logger:     logger,
	}

	a.setupMiddleware()
	a.setupRoutes()

	return a, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/sessions/{id}", a.handleSession)
	a.router.Get("/programs/{name}", a.handleProgram)

	if a.config.API != nil {
		a.router.Handle("/api/*", a.config.API)
		a.router.Handle("/healthz", a.config.API)
	}
}

// Handler returns the root handler
func (a *App) Handler() http.Handler {
	return a.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (a *App) Start(ctx context.Context) error {
	port := a.config.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("[UI] listening on http://localhost:%s", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
