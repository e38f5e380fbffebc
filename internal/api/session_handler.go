package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"invlearn/adapters/tracefile"
	"invlearn/app"
	"invlearn/domain/core"
	"invlearn/domain/equation"
	"invlearn/internal"
	"invlearn/internal/errors"
	"invlearn/internal/report"
	"invlearn/ports"
	"invlearn/programs"

	"github.com/gin-gonic/gin"
)

// SessionHandler serves learning sessions over HTTP
type SessionHandler struct {
	learning    *app.LearningService
	invariants  ports.InvariantRepository
	sessions    ports.SessionRepository
	broadcaster *ProgressBroadcaster
	timeout     time.Duration
	logger      *internal.Logger

	baseCtx context.Context
	mu      sync.RWMutex
	running map[core.SessionID]time.Time
	wg      sync.WaitGroup
}

// NewSessionHandler creates the handler. Background sessions run under
// baseCtx; cancel it to stop them. invariants, sessions and broadcaster may
// be nil.
func NewSessionHandler(baseCtx context.Context, learning *app.LearningService, invariants ports.InvariantRepository, sessions ports.SessionRepository, broadcaster *ProgressBroadcaster, timeout time.Duration) *SessionHandler {
	return &SessionHandler{
		learning:    learning,
		invariants:  invariants,
		sessions:    sessions,
		broadcaster: broadcaster,
		timeout:     timeout,
		logger:      internal.DefaultLogger,
		baseCtx:     baseCtx,
		running:     make(map[core.SessionID]time.Time),
	}
}

// WithLogger sets the logger
func (h *SessionHandler) WithLogger(logger *internal.Logger) *SessionHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// Register mounts the routes
func (h *SessionHandler) Register(r gin.IRouter) {
	r.GET("/programs", h.ListPrograms)
	r.POST("/sessions", h.StartSession)
	r.GET("/sessions", h.ListSessions)
	r.GET("/sessions/:id", h.GetSession)
	r.GET("/sessions/:id/report", h.GetReport)
	r.GET("/invariants/:program", h.ListInvariants)
	r.POST("/fit", h.Fit)
}

// Wait blocks until every background session has finished
func (h *SessionHandler) Wait() {
	h.wg.Wait()
}

type startRequest struct {
	Program   string   `json:"program" binding:"required"`
	Variables []string `json:"variables"`
	Degree    int      `json:"degree"`
	Min       *int     `json:"min"`
	Max       *int     `json:"max"`
	Seed      int64    `json:"seed"`
	Wait      bool     `json:"wait"`
}

func respondError(c *gin.Context, err error) {
	c.JSON(errors.HTTPStatus(err), gin.H{"error": err.Error(), "code": errors.GetCode(err)})
}

// ListPrograms returns the registered programs
func (h *SessionHandler) ListPrograms(c *gin.Context) {
	out := make([]gin.H, 0)
	for _, name := range programs.Names() {
		e, err := programs.Lookup(name)
		if err != nil {
			continue
		}
		out = append(out, gin.H{"name": e.Name, "description": e.Description, "variables": e.Variables})
	}
	c.JSON(http.StatusOK, gin.H{"programs": out})
}

// StartSession launches a learning session. With "wait" the response
// carries the result; otherwise it returns 202 and the session runs in the
// background.
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": errors.CodeInvalidInput})
		return
	}

	job, err := h.job(req)
	if err != nil {
		respondError(c, err)
		return
	}

	if req.Wait {
		ctx, cancel := h.sessionContext(c.Request.Context())
		defer cancel()
		result, err := h.run(ctx, job)
		if err != nil {
			c.JSON(errors.HTTPStatus(err), gin.H{"error": err.Error(), "code": errors.GetCode(err), "result": result})
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	h.mu.Lock()
	h.running[job.SessionID] = time.Now()
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			h.mu.Lock()
			delete(h.running, job.SessionID)
			h.mu.Unlock()
		}()
		ctx, cancel := h.sessionContext(h.baseCtx)
		defer cancel()
		if _, err := h.run(ctx, job); err != nil {
			h.logger.Warn("[API] session %s ended with error: %v", job.SessionID, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"session_id": job.SessionID, "status": "running"})
}

func (h *SessionHandler) job(req startRequest) (app.Job, error) {
	program, err := core.ParseProgramName(req.Program)
	if err != nil {
		return app.Job{}, errors.WithCode(errors.CodeInvalidInput, err)
	}
	entry, err := programs.Lookup(program)
	if err != nil {
		return app.Job{}, err
	}
	n := len(entry.Variables)
	if len(req.Variables) > 0 {
		n = len(req.Variables)
	}
	degree := req.Degree
	if degree == 0 {
		degree = 1
	}
	if _, err := equation.Dimension(n, degree); err != nil {
		return app.Job{}, err
	}

	job := app.Job{
		SessionID: core.NewSessionID(),
		Program:   program,
		Variables: req.Variables,
		Degree:    degree,
		Seed:      req.Seed,
	}
	if req.Min != nil || req.Max != nil {
		job.Bounds = equation.Bounds{Min: -100, Max: 100}
		if req.Min != nil {
			job.Bounds.Min = *req.Min
		}
		if req.Max != nil {
			job.Bounds.Max = *req.Max
		}
		if job.Bounds.Min > job.Bounds.Max {
			return app.Job{}, errors.InvalidInput("min exceeds max")
		}
	}
	return job, nil
}

func (h *SessionHandler) sessionContext(parent context.Context) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(parent, h.timeout)
	}
	return context.WithCancel(parent)
}

func (h *SessionHandler) run(ctx context.Context, job app.Job) (*app.Result, error) {
	result, err := h.learning.Learn(ctx, job)
	if h.broadcaster != nil && result != nil {
		h.broadcaster.Finished(result, err)
	}
	return result, err
}

// GetSession returns a finished result, or the stored record
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, err := core.ParseSessionID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": errors.CodeInvalidInput})
		return
	}

	if result, err := h.learning.Result(id); err == nil {
		c.JSON(http.StatusOK, result)
		return
	}

	h.mu.RLock()
	started, running := h.running[id]
	h.mu.RUnlock()
	if running {
		c.JSON(http.StatusAccepted, gin.H{"session_id": id, "status": "running", "started_at": started})
		return
	}

	if h.sessions != nil {
		record, err := h.sessions.GetSession(c.Request.Context(), id)
		if err == nil {
			c.JSON(http.StatusOK, record)
			return
		}
		if !core.IsNotFoundError(err) {
			respondError(c, errors.WithCode(errors.CodeDatabaseError, err))
			return
		}
	}
	respondError(c, errors.Wrapf(core.ErrSessionNotFound, "session %s", id))
}

// ListSessions returns stored session records
func (h *SessionHandler) ListSessions(c *gin.Context) {
	if h.sessions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is disabled"})
		return
	}
	records, err := h.sessions.ListSessions(c.Request.Context(), core.ProgramName(c.Query("program")), queryLimit(c))
	if err != nil {
		respondError(c, errors.WithCode(errors.CodeDatabaseError, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": records})
}

// GetReport renders a finished session as Markdown, or HTML with
// ?format=html
func (h *SessionHandler) GetReport(c *gin.Context) {
	id, err := core.ParseSessionID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": errors.CodeInvalidInput})
		return
	}
	result, err := h.learning.Result(id)
	if err != nil {
		respondError(c, err)
		return
	}
	md := report.Markdown(result)
	if c.Query("format") == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML(md, string(result.Program)))
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
}

// ListInvariants returns stored invariants for a program
func (h *SessionHandler) ListInvariants(c *gin.Context) {
	if h.invariants == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is disabled"})
		return
	}
	program, err := core.ParseProgramName(c.Param("program"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": errors.CodeInvalidInput})
		return
	}
	invariants, err := h.invariants.ListByProgram(c.Request.Context(), program, queryLimit(c))
	if err != nil {
		respondError(c, errors.WithCode(errors.CodeDatabaseError, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"program": program, "invariants": invariants})
}

// Fit trains on a JSON trace file posted as the request body
func (h *SessionHandler) Fit(c *gin.Context) {
	program, err := core.ParseProgramName(c.DefaultQuery("program", "imported"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": errors.CodeInvalidInput})
		return
	}
	degree, err := strconv.Atoi(c.DefaultQuery("degree", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "degree must be an integer", "code": errors.CodeInvalidInput})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		respondError(c, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	file, err := tracefile.ParseJSON(body)
	if err != nil {
		respondError(c, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	vars, err := equation.NewVariables(file.Variables...)
	if err != nil {
		respondError(c, err)
		return
	}
	store, err := file.Store()
	if err != nil {
		respondError(c, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}

	result, err := h.learning.Fit(c.Request.Context(), program, store, vars, degree)
	if err != nil {
		c.JSON(errors.HTTPStatus(err), gin.H{"error": err.Error(), "code": errors.GetCode(err), "result": result})
		return
	}
	c.JSON(http.StatusOK, result)
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		return 20
	}
	return limit
}
