// Package gameid generates sortable, opaque game identifiers: a UUIDv7
// encoded as 26 characters of Crockford base32. The timestamp prefix keeps
// ids index-friendly in the store while the random tail makes them
// unguessable.
package gameid

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// RandSource supplies the random tail bytes. Production passes nil, which
// uses crypto/rand; tests can inject a deterministic source.
type RandSource interface {
	Intn(n int) int
}

// Generator produces game ids with configurable randomness
type Generator struct {
	src RandSource
}

// NewGenerator creates a generator. A nil source means crypto/rand.
func NewGenerator(src RandSource) *Generator {
	return &Generator{src: src}
}

// Generate creates a new game id with the default crypto/rand source
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a new game id
func (g *Generator) Generate() string {
	var id [16]byte

	ms := time.Now().UnixMilli()
	for i := 0; i < 6; i++ {
		id[i] = byte(ms >> (40 - 8*i))
	}

	if g.src != nil {
		for i := 6; i < 16; i++ {
			id[i] = byte(g.src.Intn(256))
		}
	} else if _, err := rand.Read(id[6:]); err != nil {
		panic("gameid: crypto/rand failed: " + err.Error())
	}

	id[6] = (id[6] & 0x0f) | 0x70 // version 7
	id[8] = (id[8] & 0x3f) | 0x80 // RFC 4122 variant

	return encode(id)
}

// encode packs the 128-bit id into 26 base32 characters, five bits at a
// time, most significant bits first.
func encode(id [16]byte) string {
	n := new(big.Int).SetBytes(id[:])
	out := make([]byte, 26)
	for i := 25; i >= 0; i-- {
		out[i] = alphabet[n.Bit(0)|n.Bit(1)<<1|n.Bit(2)<<2|n.Bit(3)<<3|n.Bit(4)<<4]
		n.Rsh(n, 5)
	}
	return string(out)
}

// Validate checks that an id is 26 valid base32 characters
func Validate(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("game id must be 26 characters, got %d", len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("game id first character must be 0-7, got %c", id[0])
	}
	for i := 0; i < len(id); i++ {
		if !validChar(id[i]) {
			return fmt.Errorf("invalid character %c at position %d", id[i], i)
		}
	}
	return nil
}

func validChar(c byte) bool {
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] == c {
			return true
		}
	}
	return false
}
