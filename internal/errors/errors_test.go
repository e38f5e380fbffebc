package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"invlearn/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"not found", fmt.Errorf("lookup: %w", core.ErrProgramNotFound), CodeNotFound, http.StatusNotFound},
		{"shape", core.NewDimensionError("point", 2, 3), CodeInvalidInput, http.StatusBadRequest},
		{"label", core.ErrUnknownLabel, CodeInvalidInput, http.StatusBadRequest},
		{"training data", core.NewTrainingDataError("one class"), CodeValidationError, http.StatusBadRequest},
		{"no convergence", core.NewNoConvergenceError(512, nil), CodeNoConvergence, http.StatusUnprocessableEntity},
		{"oracle", core.NewOracleError(stderrors.New("lp")), CodeOracleUnavailable, http.StatusServiceUnavailable},
		{"canceled", fmt.Errorf("run: %w", context.Canceled), CodeCanceled, http.StatusRequestTimeout},
		{"plain", stderrors.New("boom"), CodeUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, GetCode(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	err := Wrap(core.ErrSessionNotFound, "get result")
	assert.Equal(t, CodeNotFound, GetCode(err))
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, "get result: resource not found: session", err.Error())

	plain := Wrapf(stderrors.New("disk"), "save %d", 3)
	assert.Equal(t, CodeInternalError, GetCode(plain))

	coded := WithCode(CodeDatabaseError, plain)
	assert.Equal(t, CodeDatabaseError, GetCode(coded))
	assert.True(t, IsAppError(fmt.Errorf("outer: %w", coded)))
	assert.False(t, IsAppError(stderrors.New("x")))
}
