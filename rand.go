package fslm

import "math/rand"

// Rand is a per-thread pseudorandom generator. Workers never share one:
// each is seeded from args.Seed + threadId so that runs are
// reproducible for a fixed thread count.
type Rand struct {
	src *rand.Rand
}

func NewRand(seed int64) *Rand {
	return &Rand{src: rand.New(rand.NewSource(seed))}
}

// Uniform returns a value drawn uniformly from [lo, hi).
func (r *Rand) Uniform(lo, hi float32) float32 {
	return lo + (hi-lo)*r.src.Float32()
}

// Float64 returns a value in [0, 1).
func (r *Rand) Float64() float64 { return r.src.Float64() }

// Intn returns a value in [0, n).
func (r *Rand) Intn(n int) int { return r.src.Intn(n) }

// Permutation returns a random permutation of [0, n).
func (r *Rand) Permutation(n int) []int { return r.src.Perm(n) }
