package piece

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpartanEncoder_Deterministic(t *testing.T) {
	enc := NewSpartanEncoder()
	var genesis Piece
	copy(genesis[:], "genesis")
	identity := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}

	a := enc.Encode(genesis, identity, 42, Rounds)
	b := enc.Encode(genesis, identity, 42, Rounds)

	assert.Equal(t, a, b)
}

func TestSpartanEncoder_DiffersByIndex(t *testing.T) {
	enc := NewSpartanEncoder()
	var genesis Piece
	copy(genesis[:], "genesis")
	identity := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}

	a := enc.Encode(genesis, identity, 0, Rounds)
	b := enc.Encode(genesis, identity, 1, Rounds)

	assert.NotEqual(t, a, b)
}

func TestSpartanEncoder_DiffersByIdentity(t *testing.T) {
	enc := NewSpartanEncoder()
	var genesis Piece
	copy(genesis[:], "genesis")

	a := enc.Encode(genesis, [8]byte{1}, 7, Rounds)
	b := enc.Encode(genesis, [8]byte{2}, 7, Rounds)

	assert.NotEqual(t, a, b)
}

func TestSpartanEncoder_ZeroRoundsReturnsGenesis(t *testing.T) {
	enc := NewSpartanEncoder()
	var genesis Piece
	copy(genesis[:], "unchanged")

	out := enc.Encode(genesis, [8]byte{9}, 3, 0)

	assert.Equal(t, genesis, out)
}
