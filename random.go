package booru

import (
	"math/rand/v2"
	"sync"
	"time"
)

// RandomSource picks offsets for emulated random selection. Implementations
// must be safe for concurrent use.
type RandomSource interface {
	IntN(n int) int
}

type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource returns a concurrency-safe source seeded with seed.
func NewRandomSource(seed uint64) RandomSource {
	return &lockedRand{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *lockedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

func defaultRandomSource() RandomSource {
	return NewRandomSource(uint64(time.Now().UnixNano()))
}
