package game

import "math/rand"

// RandomSource abstracts shuffle randomness so match outcomes are
// reproducible under a supplied seed.
type RandomSource interface {
	// Shuffle randomizes the order of n elements using the swap function,
	// with the same contract as rand.Shuffle.
	Shuffle(n int, swap func(i, j int))
}

type seededSource struct {
	rng *rand.Rand
}

// NewSeededSource returns a RandomSource that is deterministic for a given
// seed.
func NewSeededSource(seed int64) RandomSource {
	return &seededSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *seededSource) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}
