// Package envelopetest issues throwaway trust roots and credentials for tests.
package envelopetest

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/ruteri/spe-sentiment-envelope/cryptoutils"
	"github.com/stretchr/testify/require"
)

// Trust is a fresh trust root together with a client and a server config
// issued by it with the default subjects and issuer.
type Trust struct {
	RootSeed []byte
	RootPub  ed25519.PublicKey

	Client *cryptoutils.TrustConfig
	Server *cryptoutils.TrustConfig
}

// NewTrust creates a root and issues client and server credentials valid for
// one hour from now.
func NewTrust(t testing.TB) *Trust {
	t.Helper()

	seedB64, pub, err := cryptoutils.GenerateKeypair()
	require.NoError(t, err)
	seed, err := cryptoutils.Base64URLDecode(seedB64)
	require.NoError(t, err)

	tr := &Trust{RootSeed: seed, RootPub: pub}
	expiry := time.Now().Add(time.Hour)
	tr.Client = tr.Issue(t, cryptoutils.DefaultClientSubject, cryptoutils.DefaultIssuer, expiry)
	tr.Server = tr.Issue(t, cryptoutils.DefaultServerSubject, cryptoutils.DefaultIssuer, expiry)
	return tr
}

// Issue signs an identity with arbitrary claims under this root and returns a
// validated trust config holding it. The config's own issuer is always the
// default, so a different iss claim is rejected by CheckIdentity.
func (tr *Trust) Issue(t testing.TB, subject, issuer string, expiry time.Time) *cryptoutils.TrustConfig {
	t.Helper()

	seedB64, pub, err := cryptoutils.GenerateKeypair()
	require.NoError(t, err)

	cert, certSig, err := cryptoutils.IssueIdentity(subject, issuer, pub, expiry, tr.RootSeed, tr.RootPub)
	require.NoError(t, err)

	cfg := &cryptoutils.TrustConfig{
		RootPublicKey: cryptoutils.Base64URLEncode(tr.RootPub),
		Credential: cryptoutils.Credential{
			Certificate:          cert,
			CertificateSignature: certSig,
			PrivateKey:           seedB64,
		},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

// WithCredential returns a copy of base carrying cred instead of its own.
func WithCredential(t testing.TB, base *cryptoutils.TrustConfig, cred cryptoutils.Credential) *cryptoutils.TrustConfig {
	t.Helper()

	cfg := *base
	cfg.Credential = cred
	require.NoError(t, cfg.Validate())
	return &cfg
}
