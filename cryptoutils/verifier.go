package cryptoutils

import (
	"crypto/ed25519"
	"fmt"
)

// Verify checks a detached signature over message. A cryptographic mismatch
// returns false with a nil error; the caller decides whether that is fatal.
// A wrong key or signature length is a structural error.
func Verify(message, signature, publicKey []byte) (bool, error) {
	if len(publicKey) != PublicKeySize {
		return false, fmt.Errorf("%w: public key is %d bytes", ErrInvalidKeyLength, len(publicKey))
	}
	if len(signature) != SignatureSize {
		return false, fmt.Errorf("%w: signature is %d bytes", ErrInvalidSignatureLength, len(signature))
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature), nil
}

// VerifySignedMessage is Verify over a SignedMessage.
func VerifySignedMessage(msg *SignedMessage, publicKey []byte) (bool, error) {
	return Verify(msg.Message, msg.Signature, publicKey)
}
