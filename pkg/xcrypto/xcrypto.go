// Package xcrypto implements the handful of hashing and HMAC primitives the
// plot engine and farming loop need: deriving a farmer's identity hash from
// its public key, deriving a piece's tag from its encoding and the active
// salt, deriving a slot's local challenge, and expanding a plotting seed into
// a genesis piece.
package xcrypto

import (
	"crypto/hmac"
	"crypto/sha256"

	"github.com/cuemby/spartan-farmer/pkg/piece"
)

// PrimeSizeBytes is the width, in bytes, of a tag or a challenge.
const PrimeSizeBytes = 8

// HashPublicKey returns the first PrimeSizeBytes of SHA-256(publicKey). It
// stands in for the full public key in piece encoding and local-challenge
// derivation.
func HashPublicKey(publicKey []byte) [PrimeSizeBytes]byte {
	sum := sha256.Sum256(publicKey)
	var out [PrimeSizeBytes]byte
	copy(out[:], sum[:PrimeSizeBytes])
	return out
}

// CreateTag derives the 8-byte tag the plot engine indexes an encoding
// under, given the salt of the commitment it belongs to.
func CreateTag(encoding []byte, salt [32]byte) [PrimeSizeBytes]byte {
	mac := hmac.New(sha256.New, salt[:])
	mac.Write(encoding)
	sum := mac.Sum(nil)
	var out [PrimeSizeBytes]byte
	copy(out[:], sum[:PrimeSizeBytes])
	return out
}

// HashChallenge mixes a slot's global challenge with the farmer's identity
// hash to produce the local challenge used as the range-query target.
func HashChallenge(challenge [PrimeSizeBytes]byte, identityHash [PrimeSizeBytes]byte) [PrimeSizeBytes]byte {
	data := make([]byte, 0, 2*PrimeSizeBytes)
	data = append(data, challenge[:]...)
	data = append(data, identityHash[:]...)
	sum := sha256.Sum256(data)
	var out [PrimeSizeBytes]byte
	copy(out[:], sum[:PrimeSizeBytes])
	return out
}

// HashChallengeChain hashes a bare challenge into the next one, used by the
// simulator to generate a deterministic stream of synthetic slot challenges.
func HashChallengeChain(challenge [PrimeSizeBytes]byte) [PrimeSizeBytes]byte {
	sum := sha256.Sum256(challenge[:])
	var out [PrimeSizeBytes]byte
	copy(out[:], sum[:PrimeSizeBytes])
	return out
}

// GenesisPieceFromSeed fills a PIECE_SIZE buffer by repeatedly hashing the
// seed: block 0 is H(seed), block 1 is H(block 0), and so on, concatenated
// until the piece is full. Only called once per plot, so it need not be
// fast.
func GenesisPieceFromSeed(seed string) piece.Piece {
	var out piece.Piece
	input := []byte(seed)
	for offset := 0; offset < len(out); offset += sha256.Size {
		sum := sha256.Sum256(input)
		input = sum[:]
		copy(out[offset:], sum[:])
	}
	return out
}
