package envelope

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ruteri/spe-sentiment-envelope/cryptoutils"
)

// Validator checks the inbound envelope of a peer role against the trust
// root. It is immutable after NewValidator and safe for concurrent use.
type Validator struct {
	peer    Role
	names   HeaderNames
	subject string
	root    cryptoutils.TrustRoot
	sigErr  error
	now     func() time.Time
}

// NewValidator returns a validator for envelopes sent by peer. A nil now
// defaults to time.Now.
func NewValidator(cfg *cryptoutils.TrustConfig, peer Role, now func() time.Time) (*Validator, error) {
	if cfg == nil {
		return nil, errors.New("nil trust config")
	}
	if now == nil {
		now = time.Now
	}

	v := &Validator{
		peer:    peer,
		names:   NamesFor(cfg.HeaderNamespace, peer),
		subject: cfg.ClientSubject,
		root:    cfg.Root(),
		sigErr:  cryptoutils.ErrInvalidRequestSignature,
		now:     now,
	}
	if peer == RoleServer {
		v.subject = cfg.ServerSubject
		v.sigErr = cryptoutils.ErrInvalidResponseSignature
	}
	if len(v.root.PublicKey) != cryptoutils.PublicKeySize {
		return nil, fmt.Errorf("trust root: %w", cryptoutils.ErrInvalidKeyLength)
	}
	return v, nil
}

// Names returns the header names this validator reads.
func (v *Validator) Names() HeaderNames {
	return v.names
}

// Validate checks the peer's envelope over body for the logical path of this
// exchange and returns the peer identity. Any error means the message must be
// discarded.
func (v *Validator) Validate(path string, body []byte, headers http.Header) (*cryptoutils.Identity, error) {
	certText := lookup(headers, v.names.Cert)
	certSigB64 := lookup(headers, v.names.CertSig)
	msgSigB64 := lookup(headers, v.names.Sig)
	if certText == "" || certSigB64 == "" || msgSigB64 == "" {
		return nil, fmt.Errorf("%w: %s envelope incomplete", cryptoutils.ErrMissingAuthHeaders, v.peer)
	}

	certSig, err := cryptoutils.Base64URLDecode(certSigB64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cryptoutils.ErrInvalidCertificateSignature, err)
	}
	if err := cryptoutils.VerifyIdentitySignature([]byte(certText), certSig, v.root.PublicKey); err != nil {
		return nil, err
	}

	identity, err := cryptoutils.ParseIdentity([]byte(certText))
	if err != nil {
		return nil, err
	}
	if err := cryptoutils.CheckIdentity(identity, v.subject, v.root.Issuer, v.now()); err != nil {
		return nil, err
	}
	peerPub, err := identity.PublicKeyBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cryptoutils.ErrMalformedCertificate, err)
	}

	msgSig, err := cryptoutils.Base64URLDecode(msgSigB64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", v.sigErr, err)
	}
	ok, err := cryptoutils.VerifySignedMessage(&cryptoutils.SignedMessage{
		Message:   CanonicalMessage(path, body),
		Signature: msgSig,
	}, peerPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", v.sigErr, err)
	}
	if !ok {
		return nil, v.sigErr
	}
	return identity, nil
}
