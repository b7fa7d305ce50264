// Package identity manages the farmer's long-lived ed25519 signing
// identity, persisted as identity.bin under the farmer's data directory.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"

	"github.com/cuemby/spartan-farmer/pkg/xcrypto"
)

// ErrIdentity is returned or wrapped for any identity load/create failure.
var ErrIdentity = errors.New("identity")

// ErrNotFound is returned by Load when identity.bin does not exist.
var ErrNotFound = errors.New("identity file not found")

// fileSize is the on-disk layout: a 32-byte ed25519 seed followed by its
// 32-byte derived public key. The public key is redundant with the seed
// but is stored alongside it so Load never needs to re-derive it.
const fileSize = ed25519.SeedSize + ed25519.PublicKeySize

// SigningContext is domain-separation context prefixed to every message
// this package signs, so an identity's signatures can never be replayed
// against an unrelated protocol that happens to sign the same bytes.
const SigningContext = "FARMER"

// Identity is a farmer's signing keypair plus its derived hash.
type Identity struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
	// Hash is the first 8 bytes of SHA-256(PublicKey), used by the plotter
	// (piece encoding) and the farming loop (local challenge) in place of
	// the full 32-byte public key.
	Hash [xcrypto.PrimeSizeBytes]byte
}

// Load reads an existing identity.bin from path. It returns ErrNotFound
// wrapped if the file does not exist.
func Load(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrIdentity, path, err)
	}
	if len(data) != fileSize {
		return nil, fmt.Errorf("%w: %s has unexpected size %d, want %d", ErrIdentity, path, len(data), fileSize)
	}

	seed := data[:ed25519.SeedSize]
	wantPublicKey := data[ed25519.SeedSize:]

	privateKey := ed25519.NewKeyFromSeed(seed)
	publicKey := privateKey.Public().(ed25519.PublicKey)
	if !publicKeysEqual(publicKey, wantPublicKey) {
		return nil, fmt.Errorf("%w: %s is corrupt: public key does not match seed", ErrIdentity, path)
	}

	return &Identity{
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		Hash:       xcrypto.HashPublicKey(publicKey),
	}, nil
}

// Create generates a fresh identity, writes it to path, and returns it. It
// fails if a file already exists at path, so a farmer never silently
// discards an existing identity.
func Create(path string) (*Identity, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s already exists", ErrIdentity, path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrIdentity, path, err)
	}

	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generate key: %v", ErrIdentity, err)
	}

	data := make([]byte, 0, fileSize)
	data = append(data, privateKey.Seed()...)
	data = append(data, publicKey...)

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("%w: write %s: %v", ErrIdentity, path, err)
	}

	return &Identity{
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		Hash:       xcrypto.HashPublicKey(publicKey),
	}, nil
}

// LoadOrCreate loads the identity at path, creating one if it is absent.
func LoadOrCreate(path string) (*Identity, error) {
	id, err := Load(path)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return Create(path)
}

// Sign signs message under the domain-separated signing context.
func (id *Identity) Sign(message []byte) []byte {
	data := make([]byte, 0, len(SigningContext)+len(message))
	data = append(data, SigningContext...)
	data = append(data, message...)
	return ed25519.Sign(id.PrivateKey, data)
}

// Verify checks a signature produced by Sign against the given public key.
func Verify(publicKey ed25519.PublicKey, message, signature []byte) bool {
	data := make([]byte, 0, len(SigningContext)+len(message))
	data = append(data, SigningContext...)
	data = append(data, message...)
	return ed25519.Verify(publicKey, data, signature)
}

func publicKeysEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
