package raytracer

import (
	"math/rand/v2"
	"sync"
)

// SeedSource yields one per-frame noise value in [0, 1).
type SeedSource interface {
	Next() float32
}

type randomSeedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSeedSource returns a SeedSource backed by a PCG generator. Two sources created with
// the same seed yield the same sequence.
//
// Parameters:
//   - seed: the generator seed
//
// Returns:
//   - SeedSource: the seed source
func NewRandomSeedSource(seed uint64) SeedSource {
	return &randomSeedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *randomSeedSource) Next() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float32()
}

type sequenceSeedSource struct {
	mu     sync.Mutex
	values []float32
	next   int
}

// NewSequenceSeedSource returns a SeedSource that cycles through values. Values are wrapped
// into [0, 1) by dropping the integer part; an empty list yields 0 forever.
//
// Parameters:
//   - values: the sequence to replay
//
// Returns:
//   - SeedSource: the seed source
func NewSequenceSeedSource(values ...float32) SeedSource {
	wrapped := make([]float32, len(values))
	for i, v := range values {
		wrapped[i] = wrapUnit(v)
	}
	return &sequenceSeedSource{values: wrapped}
}

func (s *sequenceSeedSource) Next() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next]
	s.next = (s.next + 1) % len(s.values)
	return v
}

// wrapUnit maps v into [0, 1).
func wrapUnit(v float32) float32 {
	if v != v || v > 1<<62 || v < -(1<<62) {
		return 0
	}
	f := v - float32(int64(v))
	if f < 0 {
		f++
	}
	if f >= 1 {
		f = 0
	}
	return f
}
