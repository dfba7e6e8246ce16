package engine

import "math/rand"

// Source supplies the uniform randomness behind the price walk.
// Injecting it keeps every walk (and every shock condition built on top
// of it) reproducible in tests.
type Source interface {
	// Float64 returns a uniform draw in [0, 1).
	Float64() float64
}

// NewSource returns a seeded math/rand source. Same seed, same market.
func NewSource(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// uniform returns a draw in [lo, hi).
func uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}
