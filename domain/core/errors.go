package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Learning errors
	ErrInvalidTrainingData = errors.New("invalid training data")
	ErrTraceViolation      = errors.New("candidate violates question trace")
	ErrNoConvergence       = errors.New("no convergence within iteration budget")
	ErrOracleUnavailable   = errors.New("implication oracle unavailable")

	// Shape errors
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrInvalidDegree     = errors.New("invalid polynomial degree")
	ErrInvalidVariables  = errors.New("invalid variable count")
	ErrNilPoint          = errors.New("point is nil")

	// Trace errors
	ErrUnknownLabel    = errors.New("unknown trace label")
	ErrIndexOutOfRange = errors.New("index out of range")

	// Lookup errors
	ErrNotFound        = errors.New("resource not found")
	ErrProgramNotFound = fmt.Errorf("%w: program", ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
)

// Error constructors with context
func NewDimensionError(what string, want, got int) error {
	return fmt.Errorf("%w: %s expects %d, got %d", ErrDimensionMismatch, what, want, got)
}

func NewTrainingDataError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidTrainingData, reason)
}

func NewTraceViolationError(traceIndex int) error {
	return fmt.Errorf("%w: trace %d", ErrTraceViolation, traceIndex)
}

func NewNoConvergenceError(iterations int, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: stopped after %d iterations: %v", ErrNoConvergence, iterations, cause)
	}
	return fmt.Errorf("%w: stopped after %d iterations", ErrNoConvergence, iterations)
}

func NewOracleError(cause error) error {
	return fmt.Errorf("%w: %v", ErrOracleUnavailable, cause)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsShapeError(err error) bool {
	return errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrInvalidDegree) ||
		errors.Is(err, ErrInvalidVariables) ||
		errors.Is(err, ErrNilPoint)
}

// IsRetryable reports whether the learning loop should treat err as a local
// iteration failure and keep collecting data.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrInvalidTrainingData) ||
		errors.Is(err, ErrTraceViolation)
}
