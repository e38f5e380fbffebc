package ports

import (
	"context"

	"invlearn/domain/trace"
)

// Harness executes the program under study once and returns the labeled
// trace of loop-head states it recorded.
type Harness interface {
	// RunOnce executes the program on the given integer input
	RunOnce(ctx context.Context, input []int) (trace.Trace, error)

	// Arity returns the number of recorded variables
	Arity() int
}
