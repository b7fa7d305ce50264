// Package piece defines the fixed-size piece type and the external
// piece-encoding contract the plotter drives. The encoding algorithm itself
// is treated as a black box per the farmer specification: this package
// only pins down the shapes (Piece, Encoder) and ships a reference
// implementation so the module builds and its tests exercise a complete
// pipeline, not an optimized encoding primitive.
package piece

import (
	"crypto/sha256"
	"encoding/binary"
)

// Size is the fixed size, in bytes, of an encoded piece.
const Size = 4096

// Rounds is the number of encoding rounds the farmer always requests.
const Rounds = 1

// Piece is a single fixed-size encoded block of plot data.
type Piece [Size]byte

// Encoder converts a genesis piece, a farmer's identity hash, a piece
// index, and a round count into an encoded piece. Implementations must be
// deterministic: the same four inputs always produce the same bytes, since
// the plot engine's tag index and the farmer's solving loop both depend on
// being able to regenerate (or verify) a specific piece.
type Encoder interface {
	Encode(genesisPiece Piece, identityHash [8]byte, index uint64, rounds uint32) Piece
}

// SpartanEncoder is a reference Encoder. It does not implement the
// production spartan proof-of-space construction (out of scope per the
// farmer specification, which treats the encoder as an external black
// box); it deterministically derives each piece from the genesis piece,
// the farmer's identity, and the index by repeated HMAC-style mixing, which
// is enough to exercise plotting, tag derivation, and range queries
// end-to-end.
type SpartanEncoder struct{}

// NewSpartanEncoder returns the reference Encoder.
func NewSpartanEncoder() SpartanEncoder {
	return SpartanEncoder{}
}

// Encode implements Encoder.
func (SpartanEncoder) Encode(genesisPiece Piece, identityHash [8]byte, index uint64, rounds uint32) Piece {
	var out Piece
	copy(out[:], genesisPiece[:])

	var indexBytes [8]byte
	binary.BigEndian.PutUint64(indexBytes[:], index)

	for round := uint32(0); round < rounds; round++ {
		mixPiece(&out, identityHash, indexBytes, round)
	}
	return out
}

// mixPiece XORs every 32-byte block of the piece with a SHA-256 digest of
// the previous block's digest, the identity hash, the index, and the
// round, chaining blocks so encode(index) differs from encode(index+1) at
// every offset, not just a header.
func mixPiece(p *Piece, identityHash [8]byte, indexBytes [8]byte, round uint32) {
	const blockSize = sha256.Size
	var chain [blockSize]byte
	copy(chain[:], identityHash[:])

	var roundBytes [4]byte
	binary.BigEndian.PutUint32(roundBytes[:], round)

	for offset := 0; offset < Size; offset += blockSize {
		h := sha256.New()
		h.Write(chain[:])
		h.Write(identityHash[:])
		h.Write(indexBytes[:])
		h.Write(roundBytes[:])
		digest := h.Sum(nil)

		for i := 0; i < blockSize; i++ {
			p[offset+i] ^= digest[i]
		}
		copy(chain[:], digest)
	}
}
