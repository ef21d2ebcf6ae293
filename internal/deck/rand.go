package deck

import (
	"crypto/rand"
	"encoding/binary"
)

// RandSource provides the randomness for shuffling. Tests inject a seeded
// math/rand source for deterministic decks; production uses CryptoSource.
type RandSource interface {
	Intn(n int) int
}

// CryptoSource is a RandSource backed by crypto/rand. Shuffles performed
// with it are not predictable from any client-observable state.
type CryptoSource struct{}

// Intn returns a uniform random int in [0, n) without modulo bias.
func (CryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("deck: Intn called with non-positive n")
	}
	max := uint64(n)
	// Rejection sampling: discard values in the final partial bucket.
	limit := (^uint64(0) / max) * max
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			panic("deck: crypto/rand failed: " + err.Error())
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < limit {
			return int(v % max)
		}
	}
}
