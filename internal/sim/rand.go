package sim

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Rand is the uniform random source injected into the content generators
// and the disruption roll. Seed it for reproducible runs.
type Rand interface {
	// Float64 returns a uniform draw in [0, 1).
	Float64() float64
	// Intn returns a uniform draw in [0, n). Panics if n <= 0.
	Intn(n int) int
}

// NewRand returns a seeded pseudo-random source.
func NewRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}

// NewSeed generates a high-entropy seed using crypto/rand, for hosts that
// did not pin one.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// between returns a uniform draw in [min, max]. Degenerate ranges collapse
// to min.
func between(r Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + r.Intn(max-min+1)
}

// betweenF returns a uniform draw in [min, max).
func betweenF(r Rand, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + r.Float64()*(max-min)
}
