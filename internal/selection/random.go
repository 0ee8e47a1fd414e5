package selection

import (
	"math/rand/v2"
	"sync"
)

// RandomSource supplies uniform draws in [0, 1) for the weighted pick.
// *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// NewSource returns a seeded PCG source. It is not safe for concurrent use.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// LockedSource serializes access to an underlying RandomSource so one seeded
// stream can be shared by concurrent sessions.
type LockedSource struct {
	mu  sync.Mutex
	src RandomSource
}

// NewLockedSource wraps a seeded PCG source with a mutex.
func NewLockedSource(seed uint64) *LockedSource {
	return &LockedSource{src: NewSource(seed)}
}

// Float64 implements RandomSource.
func (l *LockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

// Draw picks an index with probability proportional to weights.
// Non-positive weights never win unless every weight is non-positive, in
// which case index 0 is returned. Draw returns -1 for an empty slice.
func Draw(src RandomSource, weights []float64) int {
	if len(weights) == 0 {
		return -1
	}

	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return 0
	}

	r := src.Float64() * total
	last := 0
	cum := 0.0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cum += w
		last = i
		if r < cum {
			return i
		}
	}
	// Rounding can leave r just past the final cumulative sum.
	return last
}
