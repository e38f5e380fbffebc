package api

import (
	"net/http"
	"time"

	"invlearn/internal"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the JSON API. hub may be nil to disable /api/events.
func NewRouter(sessions *SessionHandler, hub *SSEHub, logger *internal.Logger) *gin.Engine {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	sessions.Register(api)
	if hub != nil {
		api.GET("/events", hub.HandleSSE)
	}
	return router
}

func requestLogger(logger *internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("[API] %s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
