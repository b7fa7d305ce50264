package xcrypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashPublicKey_Deterministic(t *testing.T) {
	key := []byte("a fake 32 byte public key......")
	assert.Equal(t, HashPublicKey(key), HashPublicKey(key))
}

func TestCreateTag_VariesBySalt(t *testing.T) {
	encoding := []byte("an encoded piece")
	a := CreateTag(encoding, [32]byte{1})
	b := CreateTag(encoding, [32]byte{2})
	assert.NotEqual(t, a, b)
}

func TestHashChallenge_VariesByIdentity(t *testing.T) {
	challenge := [PrimeSizeBytes]byte{1, 2, 3, 4, 5, 6, 7, 8}
	a := HashChallenge(challenge, [PrimeSizeBytes]byte{1})
	b := HashChallenge(challenge, [PrimeSizeBytes]byte{2})
	assert.NotEqual(t, a, b)
}

func TestHashChallengeChain_Deterministic(t *testing.T) {
	challenge := [PrimeSizeBytes]byte{9, 9, 9, 9, 9, 9, 9, 9}
	assert.Equal(t, HashChallengeChain(challenge), HashChallengeChain(challenge))
}

func TestGenesisPieceFromSeed_DiffersBySeed(t *testing.T) {
	a := GenesisPieceFromSeed("seed-one")
	b := GenesisPieceFromSeed("seed-two")
	assert.NotEqual(t, a, b)
}

func TestGenesisPieceFromSeed_FillsWholePiece(t *testing.T) {
	p := GenesisPieceFromSeed("seed")

	var allZero = true
	for _, b := range p[len(p)-32:] {
		if b != 0 {
			allZero = false
			break
		}
	}
	assert.False(t, allZero, "trailing block of the genesis piece should be filled, not left zeroed")
}
