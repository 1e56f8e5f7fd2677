package envelope

import (
	"errors"
	"fmt"
	"time"

	"github.com/ruteri/spe-sentiment-envelope/cryptoutils"
)

// Builder produces the outbound envelope for one role from the process's own
// credential. It is immutable after NewBuilder and safe for concurrent use.
type Builder struct {
	role    Role
	names   HeaderNames
	subject string
	issuer  string

	certificate string
	certSig     string
	identity    *cryptoutils.Identity
	signer      *cryptoutils.Signer

	now func() time.Time
}

// NewBuilder loads the own credential from cfg for role. The root signature
// over the certificate and the seed/public key pairing are checked once here.
// A nil now defaults to time.Now.
func NewBuilder(cfg *cryptoutils.TrustConfig, role Role, now func() time.Time) (*Builder, error) {
	if cfg == nil {
		return nil, errors.New("nil trust config")
	}
	if now == nil {
		now = time.Now
	}

	subject := cfg.ClientSubject
	if role == RoleServer {
		subject = cfg.ServerSubject
	}

	cred := cfg.Credential
	certSig, err := cryptoutils.Base64URLDecode(cred.CertificateSignature)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cryptoutils.ErrInvalidCertificateSignature, err)
	}
	if err := cryptoutils.VerifyIdentitySignature([]byte(cred.Certificate), certSig, cfg.Root().PublicKey); err != nil {
		return nil, err
	}

	identity, err := cryptoutils.ParseIdentity([]byte(cred.Certificate))
	if err != nil {
		return nil, err
	}
	pub, err := identity.PublicKeyBytes()
	if err != nil {
		return nil, err
	}
	signer, err := cryptoutils.NewSigner(cred.PrivateKey, pub)
	if err != nil {
		return nil, err
	}
	if !signer.MatchesPublicKey() {
		return nil, cryptoutils.ErrCredentialKeyMismatch
	}

	b := &Builder{
		role:        role,
		names:       NamesFor(cfg.HeaderNamespace, role),
		subject:     subject,
		issuer:      cfg.Issuer,
		certificate: cred.Certificate,
		certSig:     cred.CertificateSignature,
		identity:    identity,
		signer:      signer,
		now:         now,
	}

	// Fail at startup rather than on the first request.
	if err := cryptoutils.CheckIdentity(identity, subject, cfg.Issuer, now()); err != nil {
		return nil, err
	}
	return b, nil
}

// Role returns the role this builder signs as.
func (b *Builder) Role() Role {
	return b.role
}

// Names returns the header names this builder emits.
func (b *Builder) Names() HeaderNames {
	return b.names
}

// Identity returns the own identity.
func (b *Builder) Identity() *cryptoutils.Identity {
	return b.identity
}

// Build signs NormalizePath(path) + "\n" + body and returns exactly three
// headers: the own certificate, the root's signature over it, and the message
// signature. On any failure no headers are returned.
func (b *Builder) Build(path string, body []byte) (Headers, error) {
	identity, err := cryptoutils.ParseIdentity([]byte(b.certificate))
	if err != nil {
		return nil, err
	}
	if err := cryptoutils.CheckIdentity(identity, b.subject, b.issuer, b.now()); err != nil {
		return nil, err
	}
	if _, err := identity.PublicKeyBytes(); err != nil {
		return nil, err
	}

	signed, err := b.signer.SignMessage(CanonicalMessage(path, body))
	if err != nil {
		return nil, err
	}

	return Headers{
		{Name: b.names.Cert, Value: b.certificate},
		{Name: b.names.CertSig, Value: b.certSig},
		{Name: b.names.Sig, Value: cryptoutils.Base64URLEncode(signed.Signature)},
	}, nil
}
