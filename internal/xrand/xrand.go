// Package xrand wraps the single process-wide pseudorandom source the
// simulation draws from. Every consumer goes through a Source so that a
// fixed seed and a fixed action log reproduce an identical diff stream.
package xrand

import "math/rand"

// Source is the minimal randomness contract the simulation needs: a
// uniform real in [0,1) and an in-place Fisher-Yates shuffle.
type Source interface {
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// Rand adapts *rand.Rand to Source.
type Rand struct {
	r *rand.Rand
}

// New creates a Source seeded deterministically from seed.
func New(seed int64) *Rand {
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

func (r *Rand) Float64() float64 {
	return r.r.Float64()
}

func (r *Rand) Shuffle(n int, swap func(i, j int)) {
	r.r.Shuffle(n, swap)
}

// ShuffleCoords shuffles s in place using src.
func ShuffleCoords[T any](src Source, s []T) {
	src.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}
