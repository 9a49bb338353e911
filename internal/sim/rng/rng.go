package rng

import "math"

// Source is a splitmix64 generator. Its whole state is one uint64 so it can
// be cloned for staged turns and written into snapshots.
type Source struct {
	state uint64
}

func New(seed int64) *Source {
	return &Source{state: uint64(seed)}
}

// FromState restores a generator captured with State.
func FromState(state uint64) *Source {
	return &Source{state: state}
}

func (s *Source) State() uint64 { return s.state }

func (s *Source) Clone() *Source {
	c := *s
	return &c
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func (s *Source) Uint64() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Float64 returns a value in [0,1).
func (s *Source) Float64() float64 {
	return float64(s.Uint64()>>11) / (1 << 53)
}

// Intn returns a value in [0,n). n <= 0 yields 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.Uint64() % uint64(n))
}

// IntRange returns a value in [lo,hi] inclusive.
func (s *Source) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.Intn(hi-lo+1)
}

// Uniform returns a value in [lo,hi).
func (s *Source) Uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + s.Float64()*(hi-lo)
}

// Chance reports true with probability p.
func (s *Source) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		s.Uint64()
		return true
	}
	return s.Float64() < p
}

// Pick draws an index from weights in slice order. Non-positive weights are
// never picked; -1 means nothing was eligible.
func (s *Source) Pick(weights []float64) int {
	var total float64
	for _, w := range weights {
		if w > 0 && !math.IsInf(w, 0) {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	target := s.Float64() * total
	var acc float64
	last := -1
	for i, w := range weights {
		if w <= 0 || math.IsInf(w, 0) {
			continue
		}
		acc += w
		last = i
		if target < acc {
			return i
		}
	}
	return last
}

// Hash derives a stable value from a seed and a key without touching any
// generator state.
func Hash(seed int64, key uint64) uint64 {
	return mix64(uint64(seed) ^ (key * 0x9e3779b97f4a7c15))
}
