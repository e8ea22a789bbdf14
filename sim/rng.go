package sim

import (
	"fmt"
	"hash/fnv"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and identical scenario MUST produce
// bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === RandomService ===

// RNGState is an opaque checkpoint of a RandomService stream. It is a plain
// value; copying it is safe and Restore never aliases the caller's copy.
type RNGState struct {
	s [4]uint64
}

// RandomService is the sole permitted source of pseudo-randomness in the
// engine. It is seeded explicitly, never reads wall-clock time or OS entropy,
// and produces identical sequences on every platform.
//
// The generator core is xoshiro256** with splitmix64 seed expansion, chosen
// over math/rand because the contract requires an exportable, restorable
// state and platform-stable output.
//
// Thread-safety: NOT thread-safe. Must be called from a single goroutine.
type RandomService struct {
	key     SimulationKey
	s       [4]uint64
	streams map[string]*RandomService
}

// NewRandomService creates a RandomService from an explicit seed.
func NewRandomService(seed int64) *RandomService {
	r := &RandomService{
		key:     NewSimulationKey(seed),
		streams: make(map[string]*RandomService),
	}
	r.reseed(uint64(seed))
	return r
}

func (r *RandomService) reseed(seed uint64) {
	// splitmix64 expansion; an all-zero xoshiro state is degenerate and
	// splitmix64 guarantees we never produce one.
	x := seed
	for i := range r.s {
		x += 0x9e3779b97f4a7c15
		z := x
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		r.s[i] = z ^ (z >> 31)
	}
}

// Key returns the SimulationKey this service was constructed from.
func (r *RandomService) Key() SimulationKey {
	return r.key
}

func rotl(x uint64, k uint) uint64 {
	return (x << k) | (x >> (64 - k))
}

func (r *RandomService) next() uint64 {
	result := rotl(r.s[1]*5, 7) * 9
	t := r.s[1] << 17
	r.s[2] ^= r.s[0]
	r.s[3] ^= r.s[1]
	r.s[1] ^= r.s[2]
	r.s[0] ^= r.s[3]
	r.s[2] ^= t
	r.s[3] = rotl(r.s[3], 45)
	return result
}

// Float64 returns a uniformly distributed float64 in [0, 1).
func (r *RandomService) Float64() float64 {
	// 53 high bits, the standard xoshiro double construction.
	return float64(r.next()>>11) / (1 << 53)
}

// IntN returns a uniformly distributed int in [lo, hi] inclusive.
// Panics if hi < lo; the bounds are always literals at call sites.
func (r *RandomService) IntN(lo, hi int) int {
	if hi < lo {
		panic(fmt.Sprintf("IntN: invalid bounds [%d, %d]", lo, hi))
	}
	n := uint64(hi-lo) + 1
	// Modulo bias is below 2^-53 for the ranges this engine draws from.
	return lo + int(r.next()%n)
}

// Checkpoint captures the current generator state. Derived streams are not
// included; checkpoint each stream separately if needed.
func (r *RandomService) Checkpoint() RNGState {
	return RNGState{s: r.s}
}

// Restore rewinds the generator to a previously captured state.
func (r *RandomService) Restore(state RNGState) {
	r.s = state.s
}

// Stream returns a deterministically seeded child stream for the named
// subsystem. The same name always returns the same instance, and the derived
// seed is masterSeed XOR fnv1a64(name), so no subsystem's draw order can
// perturb a sibling's sequence.
func (r *RandomService) Stream(name string) *RandomService {
	if s, ok := r.streams[name]; ok {
		return s
	}
	s := NewRandomService(int64(r.key) ^ fnv1a64(name))
	r.streams[name] = s
	return s
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
