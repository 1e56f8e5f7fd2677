package cryptoutils

import (
	"encoding/json"
	"fmt"
	"time"
)

// Identity is a trust-root-issued claim binding a subject id to an Ed25519
// public key. It is parsed from the wire object {"id","pubkey","exp","iss"}.
//
// Raw holds the exact JSON text the identity was parsed from. Signatures are
// always checked over Raw, never over a re-encoding of the struct.
type Identity struct {
	SubjectID string `json:"id"`
	PublicKey string `json:"pubkey"`
	Expiry    int64  `json:"exp"`
	Issuer    string `json:"iss"`

	Raw []byte `json:"-"`
}

// ParseIdentity parses identity JSON text. It fails with
// ErrMalformedCertificate when the text is not a JSON object, the public key
// field is absent or empty, or exp is not an integer. Keys are matched
// case-insensitively, as encoding/json does; only root-signed text reaches
// here, so the signature still pins the exact spelling.
func ParseIdentity(jsonText []byte) (*Identity, error) {
	var id Identity
	if err := json.Unmarshal(jsonText, &id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCertificate, err)
	}
	if id.PublicKey == "" {
		return nil, fmt.Errorf("%w: missing pubkey", ErrMalformedCertificate)
	}
	id.Raw = append([]byte(nil), jsonText...)
	return &id, nil
}

// PublicKeyBytes decodes the certified public key and checks its length.
func (id *Identity) PublicKeyBytes() ([]byte, error) {
	pub, err := Base64URLDecode(id.PublicKey)
	if err != nil {
		return nil, err
	}
	if len(pub) != PublicKeySize {
		return nil, fmt.Errorf("%w: public key is %d bytes", ErrInvalidKeyLength, len(pub))
	}
	return pub, nil
}

// ExpiresAt returns the expiry as a time.
func (id *Identity) ExpiresAt() time.Time {
	return time.Unix(id.Expiry, 0)
}

// CheckIdentity enforces the trust policy on a parsed identity: not expired
// at now, issued by expectedIssuer, and naming expectedSubject.
// An identity is still valid during the second named by its expiry.
func CheckIdentity(id *Identity, expectedSubject, expectedIssuer string, now time.Time) error {
	if id.Expiry < now.Unix() {
		return fmt.Errorf("%w: expired at %s", ErrCertificateExpired, id.ExpiresAt().UTC().Format(time.RFC3339))
	}
	if id.Issuer != expectedIssuer {
		return fmt.Errorf("%w: got %q, want %q", ErrUnexpectedIssuer, id.Issuer, expectedIssuer)
	}
	if id.SubjectID != expectedSubject {
		return fmt.Errorf("%w: got %q, want %q", ErrUnexpectedSubject, id.SubjectID, expectedSubject)
	}
	return nil
}

// VerifyIdentitySignature checks the trust root's detached signature over the
// exact identity JSON text. Structural problems with the signature or key are
// reported together with ErrInvalidCertificateSignature.
func VerifyIdentitySignature(jsonText, signature []byte, rootPublicKey []byte) error {
	ok, err := Verify(jsonText, signature, rootPublicKey)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCertificateSignature, err)
	}
	if !ok {
		return ErrInvalidCertificateSignature
	}
	return nil
}

// IssueIdentity serializes a compact identity JSON for subject and signs it
// with the root's private key. It returns the exact JSON text and the
// base64url root signature, as they are provisioned into a Credential.
func IssueIdentity(subject, issuer string, subjectPub []byte, expiry time.Time, rootSeed, rootPub []byte) (string, string, error) {
	if len(subjectPub) != PublicKeySize {
		return "", "", fmt.Errorf("%w: subject public key is %d bytes", ErrInvalidKeyLength, len(subjectPub))
	}

	// Field order is fixed by the struct and is what gets signed.
	text, err := json.Marshal(Identity{
		SubjectID: subject,
		PublicKey: Base64URLEncode(subjectPub),
		Expiry:    expiry.Unix(),
		Issuer:    issuer,
	})
	if err != nil {
		return "", "", fmt.Errorf("could not encode identity: %w", err)
	}

	sig, err := Sign(text, rootSeed, rootPub)
	if err != nil {
		return "", "", fmt.Errorf("could not sign identity: %w", err)
	}
	return string(text), Base64URLEncode(sig), nil
}
