// Package entropy provides the simulation's randomness: a seeded stream
// whose state is captured in snapshots, and coordinate hashing for
// generation that must not depend on the order regions are produced in.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand/v2"
)

// Source is a deterministic random stream. Not safe for concurrent use;
// the simulation step is its only caller.
type Source struct {
	pcg *mrand.PCG
	rng *mrand.Rand
}

// New returns a Source seeded from seed. The stream offset keeps it
// independent of other seed-derived generators.
func New(seed int64) *Source {
	pcg := mrand.NewPCG(uint64(seed), uint64(seed)+500)
	return &Source{pcg: pcg, rng: mrand.New(pcg)}
}

// Float returns a value in [0, 1).
func (s *Source) Float() float64 { return s.rng.Float64() }

// IntN returns a value in [0, n). n <= 0 yields 0.
func (s *Source) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.IntN(n)
}

// Range returns a value in [lo, hi].
func (s *Source) Range(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.IntN(hi-lo+1)
}

// Chance reports true with probability p.
func (s *Source) Chance(p float64) bool { return s.rng.Float64() < p }

// MarshalBinary captures the generator position.
func (s *Source) MarshalBinary() ([]byte, error) {
	return s.pcg.MarshalBinary()
}

// UnmarshalBinary restores a position captured by MarshalBinary.
func (s *Source) UnmarshalBinary(b []byte) error {
	if err := s.pcg.UnmarshalBinary(b); err != nil {
		return fmt.Errorf("restore rng state: %w", err)
	}
	return nil
}

// RandomSeed draws a seed from crypto/rand for worlds started without one.
func RandomSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 1
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}
