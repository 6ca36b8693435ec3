package registry

import (
	"math/rand/v2"
	"sync"
)

// Selector picks which of n pharmacists receives a prescription. It is only
// called with n > 0 and must return an index in [0, n).
type Selector interface {
	Select(n int) int
}

// RandomSelector picks uniformly at random.
type RandomSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSelector seeds the generator with seed; zero draws from the
// runtime's random source.
func NewRandomSelector(seed uint64) *RandomSelector {
	if seed == 0 {
		return &RandomSelector{}
	}
	return &RandomSelector{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *RandomSelector) Select(n int) int {
	if s.rng == nil {
		return rand.IntN(n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// FixedSelector always picks the same position, clamped to the pool.
type FixedSelector int

func (f FixedSelector) Select(n int) int {
	return max(0, min(int(f), n-1))
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(n int) int

func (f SelectorFunc) Select(n int) int { return f(n) }
