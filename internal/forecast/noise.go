package forecast

import (
	"math/rand/v2"
	"sync"
)

// NoiseSource draws zero-mean perturbations for the heuristic forecaster
type NoiseSource interface {
	Normal(stddev float64) float64
}

// ZeroNoise makes heuristic forecasts fully deterministic
type ZeroNoise struct{}

// Normal always returns 0
func (ZeroNoise) Normal(float64) float64 { return 0 }

// GaussianNoise draws from a seeded normal distribution. Safe for concurrent use.
type GaussianNoise struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGaussianNoise creates a reproducible source for seed
func NewGaussianNoise(seed uint64) *GaussianNoise {
	return &GaussianNoise{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Normal returns a draw from N(0, stddev²)
func (g *GaussianNoise) Normal(stddev float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.NormFloat64() * stddev
}
