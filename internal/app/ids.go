package app

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

// newGameID returns a random UUIDv4 string.
func newGameID() string { return uuid.NewString() }

// gameRand returns the PRNG feeding the n-th game. A zero base seed draws a
// fresh seed; otherwise games are reproducible in creation order.
func gameRand(base uint64, n uint64) *rand.Rand {
	if base == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(base, n))
}
