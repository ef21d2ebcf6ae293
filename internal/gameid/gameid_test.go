package gameid

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProducesValidIDs(t *testing.T) {
	t.Parallel()
	for i := 0; i < 100; i++ {
		id := Generate()
		require.Len(t, id, 26)
		require.NoError(t, Validate(id))
	}
}

func TestGenerateIsUnique(t *testing.T) {
	t.Parallel()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGenerateWithInjectedSource(t *testing.T) {
	t.Parallel()
	gen := NewGenerator(rand.New(rand.NewSource(1)))
	id := gen.Generate()
	require.NoError(t, Validate(id))
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		id   string
		ok   bool
	}{
		{"valid", Generate(), true},
		{"too short", "0123456789", false},
		{"too long", "0123456789abcdefghjkmnpqrstvwxyz", false},
		{"first char out of range", "z1234567890123456789012345", false},
		{"invalid character", "0123456789012345678901234u", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.id)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
