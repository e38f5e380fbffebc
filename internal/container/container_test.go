package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"invlearn/internal"
	"invlearn/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)

	c, err := New(config.Default(), internal.NewNopLogger())
	require.NoError(t, err)
	assert.NotNil(t, c.Learning)
	assert.NotNil(t, c.Batch)
	assert.Equal(t, config.Default().Learning.OracleSlack, c.Oracle.Slack())
	assert.Nil(t, c.DB)
	assert.Nil(t, c.InvariantRepo)
	assert.Error(t, c.InitWithDatabase(nil))
}

func TestOpen_WithoutDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Database.URL = ""

	c, err := Open(context.Background(), cfg, internal.NewNopLogger())
	require.NoError(t, err)

	router := c.InitAPI(context.Background())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.NoError(t, c.Shutdown(context.Background()))
}
