package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation so a learning session
// replays identically for the same seed
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream derives a deterministic stream for one stage of one session
	Stream(ctx context.Context, sessionID, stageName string, baseSeed int64) (*rand.Rand, error)
}
