package cryptoutils

import (
	"crypto/ed25519"
	"fmt"
)

const (
	// SeedSize is the size of a private key seed as provisioned on the wire.
	SeedSize = ed25519.SeedSize
	// PublicKeySize is the size of an Ed25519 public key.
	PublicKeySize = ed25519.PublicKeySize
	// SignatureSize is the size of a detached Ed25519 signature.
	SignatureSize = ed25519.SignatureSize
)

// SignedMessage pairs a canonical message with its detached signature.
// It lives for a single request or response.
type SignedMessage struct {
	Message   []byte
	Signature []byte
}

// Sign produces a deterministic detached signature over message. The signing
// key is seed||publicKey; publicKey is taken as given and not re-derived, so a
// seed paired with the wrong public key yields signatures that do not verify.
func Sign(message, seed, publicKey []byte) ([]byte, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: private key is %d bytes", ErrInvalidKeyLength, len(seed))
	}
	if len(publicKey) != PublicKeySize {
		return nil, fmt.Errorf("%w: public key is %d bytes", ErrInvalidKeyLength, len(publicKey))
	}

	key := make([]byte, 0, ed25519.PrivateKeySize)
	key = append(key, seed...)
	key = append(key, publicKey...)
	return ed25519.Sign(ed25519.PrivateKey(key), message), nil
}

// Signer holds a decoded seed and the public key certified for it.
type Signer struct {
	seed      []byte
	publicKey []byte
}

// NewSigner decodes a base64url seed and pairs it with publicKey.
func NewSigner(seedB64 string, publicKey []byte) (*Signer, error) {
	seed, err := Base64URLDecode(seedB64)
	if err != nil {
		return nil, fmt.Errorf("could not decode private key: %w", err)
	}
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: private key is %d bytes", ErrInvalidKeyLength, len(seed))
	}
	if len(publicKey) != PublicKeySize {
		return nil, fmt.Errorf("%w: public key is %d bytes", ErrInvalidKeyLength, len(publicKey))
	}
	return &Signer{seed: seed, publicKey: append([]byte(nil), publicKey...)}, nil
}

// SignMessage signs message and returns it with its signature.
func (s *Signer) SignMessage(message []byte) (*SignedMessage, error) {
	sig, err := Sign(message, s.seed, s.publicKey)
	if err != nil {
		return nil, err
	}
	return &SignedMessage{Message: message, Signature: sig}, nil
}

// MatchesPublicKey reports whether the seed derives the paired public key.
func (s *Signer) MatchesPublicKey() bool {
	derived := ed25519.NewKeyFromSeed(s.seed).Public().(ed25519.PublicKey)
	return derived.Equal(ed25519.PublicKey(s.publicKey))
}
