package synth

import (
	"math/rand"
	"slices"
	"sync"
)

// RNG is a seeded random number generator. It is safe for concurrent use.
type RNG struct {
	rand *rand.Rand
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{rand: rand.New(rand.NewSource(seed))}
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call.
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UniformVectors generates num random vectors with values in range [0, 1).
// The vectors share a single backing array, returned as data.
func (r *RNG) UniformVectors(num int, dimensions int) (vectors [][]float32, data []float32) {
	data = make([]float32, num*dimensions)
	r.FillUniform(data)

	vectors = make([][]float32, num)
	for i := range vectors {
		vectors[i] = data[i*dimensions : (i+1)*dimensions : (i+1)*dimensions]
	}

	return vectors, data
}

// Sample draws size distinct values from [0, n) without replacement and
// returns them in ascending order. size is clamped to n.
//
// Uses Floyd's algorithm: O(size) draws regardless of n.
func (r *RNG) Sample(n, size int) []int {
	if size > n {
		size = n
	}
	if size <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int]struct{}, size)
	out := make([]int, 0, size)
	for j := n - size; j < n; j++ {
		t := r.rand.Intn(j + 1)
		if _, dup := seen[t]; dup {
			t = j
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	slices.Sort(out)
	return out
}
