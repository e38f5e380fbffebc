package rng

import (
	"context"
	"hash/fnv"
	"math/rand"

	"invlearn/ports"
)

// Source hands out math/rand streams derived from a base seed
type Source struct{}

var _ ports.RNGPort = Source{}

// New returns a Source
func New() Source {
	return Source{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (Source) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewSource(seed + int64(hashString(name)))), nil
}

// Stream derives a stream from the session ID, stage name and base seed, so
// two stages of one session never share a sequence
func (Source) Stream(ctx context.Context, sessionID, stageName string, baseSeed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := baseSeed
	if sessionID != "" {
		seed += int64(hashString(sessionID))
	}
	if stageName != "" {
		seed += int64(hashString(stageName)) << 1
	}
	return rand.New(rand.NewSource(seed)), nil
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
