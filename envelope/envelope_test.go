package envelope

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ruteri/spe-sentiment-envelope/cryptoutils"
	"github.com/ruteri/spe-sentiment-envelope/envelope/envelopetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawEnvelope signs body for path with cfg's credential without any of the
// Builder's own checks, so tests can produce envelopes a Builder would refuse.
func rawEnvelope(t *testing.T, cfg *cryptoutils.TrustConfig, role Role, path string, body []byte) http.Header {
	t.Helper()

	id, err := cryptoutils.ParseIdentity([]byte(cfg.Credential.Certificate))
	require.NoError(t, err)
	pub, err := id.PublicKeyBytes()
	require.NoError(t, err)
	signer, err := cryptoutils.NewSigner(cfg.Credential.PrivateKey, pub)
	require.NoError(t, err)
	signed, err := signer.SignMessage(CanonicalMessage(path, body))
	require.NoError(t, err)

	names := NamesFor(cfg.HeaderNamespace, role)
	h := http.Header{}
	h.Set(names.Cert, cfg.Credential.Certificate)
	h.Set(names.CertSig, cfg.Credential.CertificateSignature)
	h.Set(names.Sig, cryptoutils.Base64URLEncode(signed.Signature))
	return h
}

func toHTTPHeader(h Headers) http.Header {
	out := http.Header{}
	h.Apply(out)
	return out
}

func TestNormalizePath(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{in: "/analyze/", want: "/analyze"},
		{in: "/analyze", want: "/analyze"},
		{in: "/", want: "/"},
		{in: "/analyze//", want: "/analyze/"},
		{in: "", want: ""},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, NormalizePath(tc.in), tc.in)
	}

	assert.Equal(t, CanonicalMessage("/analyze/", []byte("x")), CanonicalMessage("/analyze", []byte("x")))
	assert.Equal(t, []byte("/\n{}"), CanonicalMessage("/", []byte("{}")))
}

func TestNamesFor(t *testing.T) {
	names := NamesFor("SPE", RoleClient)
	assert.Equal(t, "X-SPE-Client-Cert", names.Cert)
	assert.Equal(t, "X-SPE-Client-CertSig", names.CertSig)
	assert.Equal(t, "X-SPE-Client-Sig", names.Sig)
	assert.Equal(t, "X-SPE-Server-Sig", NamesFor("SPE", RoleClient.Peer()).Sig)
}

func TestEndToEndAnalyzeExchange(t *testing.T) {
	tr := envelopetest.NewTrust(t)

	clientBuilder, err := NewBuilder(tr.Client, RoleClient, nil)
	require.NoError(t, err)
	serverBuilder, err := NewBuilder(tr.Server, RoleServer, nil)
	require.NoError(t, err)
	clientSideValidator, err := NewValidator(tr.Client, RoleServer, nil)
	require.NoError(t, err)
	serverSideValidator, err := NewValidator(tr.Server, RoleClient, nil)
	require.NoError(t, err)

	reqBody := []byte(`{"items":[]}`)
	reqHeaders, err := clientBuilder.Build("/analyze", reqBody)
	require.NoError(t, err)
	require.Len(t, reqHeaders, 3)
	assert.Equal(t, "X-SPE-Client-Cert", reqHeaders[0].Name)
	assert.Equal(t, "X-SPE-Client-CertSig", reqHeaders[1].Name)
	assert.Equal(t, "X-SPE-Client-Sig", reqHeaders[2].Name)
	assert.Equal(t, tr.Client.Credential.Certificate, reqHeaders.Get("x-spe-client-cert"))

	peer, err := serverSideValidator.Validate("/analyze", reqBody, toHTTPHeader(reqHeaders))
	require.NoError(t, err)
	assert.Equal(t, cryptoutils.DefaultClientSubject, peer.SubjectID)

	respBody := []byte(`{"ok":true,"results":[]}`)
	respHeaders, err := serverBuilder.Build("/analyze", respBody)
	require.NoError(t, err)

	peer, err = clientSideValidator.Validate("/analyze", respBody, toHTTPHeader(respHeaders))
	require.NoError(t, err)
	assert.Equal(t, cryptoutils.DefaultServerSubject, peer.SubjectID)

	// A trailing slash on either side does not change the canonical message
	_, err = clientSideValidator.Validate("/analyze/", respBody, toHTTPHeader(respHeaders))
	require.NoError(t, err)

	altered := []byte(`{"ok":true,"results":{}}`)
	_, err = clientSideValidator.Validate("/analyze", altered, toHTTPHeader(respHeaders))
	assert.ErrorIs(t, err, cryptoutils.ErrInvalidResponseSignature)

	// The request direction reports its own kind
	_, err = serverSideValidator.Validate("/analyze", []byte(`{"items":[1]}`), toHTTPHeader(reqHeaders))
	assert.ErrorIs(t, err, cryptoutils.ErrInvalidRequestSignature)
	assert.ErrorIs(t, err, cryptoutils.ErrInvalidMessageSignature)
}

func TestValidatorTamperingAnyByte(t *testing.T) {
	tr := envelopetest.NewTrust(t)
	serverBuilder, err := NewBuilder(tr.Server, RoleServer, nil)
	require.NoError(t, err)
	v, err := NewValidator(tr.Client, RoleServer, nil)
	require.NoError(t, err)

	body := []byte(`{"ok":true,"results":[{"id":7,"label":"positive"}]}`)
	headers, err := serverBuilder.Build("/analyze", body)
	require.NoError(t, err)
	h := toHTTPHeader(headers)

	for i := range body {
		tampered := append([]byte(nil), body...)
		tampered[i] ^= 0x20
		_, err := v.Validate("/analyze", tampered, h)
		require.ErrorIs(t, err, cryptoutils.ErrInvalidResponseSignature, "byte %d", i)
	}
}

func TestValidatorPathBinding(t *testing.T) {
	tr := envelopetest.NewTrust(t)
	serverBuilder, err := NewBuilder(tr.Server, RoleServer, nil)
	require.NoError(t, err)
	v, err := NewValidator(tr.Client, RoleServer, nil)
	require.NoError(t, err)

	body := []byte(`{"ok":true,"results":[]}`)
	headers, err := serverBuilder.Build("/analyze", body)
	require.NoError(t, err)

	_, err = v.Validate("/other", body, toHTTPHeader(headers))
	assert.ErrorIs(t, err, cryptoutils.ErrInvalidResponseSignature)
}

func TestValidatorMissingHeaders(t *testing.T) {
	tr := envelopetest.NewTrust(t)
	serverBuilder, err := NewBuilder(tr.Server, RoleServer, nil)
	require.NoError(t, err)
	v, err := NewValidator(tr.Client, RoleServer, nil)
	require.NoError(t, err)

	body := []byte(`{"ok":true,"results":[]}`)
	headers, err := serverBuilder.Build("/analyze", body)
	require.NoError(t, err)

	for _, drop := range []string{"X-SPE-Server-Cert", "X-SPE-Server-CertSig", "X-SPE-Server-Sig"} {
		t.Run(drop, func(t *testing.T) {
			h := toHTTPHeader(headers)
			h.Del(drop)
			_, err := v.Validate("/analyze", body, h)
			assert.ErrorIs(t, err, cryptoutils.ErrMissingAuthHeaders)
		})
	}

	// An empty value counts as missing
	h := toHTTPHeader(headers)
	h.Set("X-SPE-Server-Sig", "")
	_, err = v.Validate("/analyze", body, h)
	assert.ErrorIs(t, err, cryptoutils.ErrMissingAuthHeaders)

	// Client headers do not satisfy a server validator
	clientBuilder, err := NewBuilder(tr.Client, RoleClient, nil)
	require.NoError(t, err)
	clientHeaders, err := clientBuilder.Build("/analyze", body)
	require.NoError(t, err)
	_, err = v.Validate("/analyze", body, toHTTPHeader(clientHeaders))
	assert.ErrorIs(t, err, cryptoutils.ErrMissingAuthHeaders)
}

func TestValidatorCaseInsensitiveLookup(t *testing.T) {
	tr := envelopetest.NewTrust(t)
	v, err := NewValidator(tr.Client, RoleServer, nil)
	require.NoError(t, err)

	body := []byte(`{"ok":true,"results":[]}`)
	canonical := rawEnvelope(t, tr.Server, RoleServer, "/analyze", body)

	// Raw map keys, bypassing http.Header canonicalization
	h := http.Header{}
	for k, vals := range canonical {
		h[strings.ToLower(k)] = vals
	}
	_, err = v.Validate("/analyze", body, h)
	require.NoError(t, err)
}

func TestValidatorCertificateFailures(t *testing.T) {
	tr := envelopetest.NewTrust(t)
	v, err := NewValidator(tr.Client, RoleServer, nil)
	require.NoError(t, err)
	body := []byte(`{"ok":true,"results":[]}`)

	t.Run("Expired", func(t *testing.T) {
		cfg := tr.Issue(t, cryptoutils.DefaultServerSubject, cryptoutils.DefaultIssuer, time.Now().Add(-time.Minute))
		_, err := v.Validate("/analyze", body, rawEnvelope(t, cfg, RoleServer, "/analyze", body))
		assert.ErrorIs(t, err, cryptoutils.ErrCertificateExpired)
	})

	t.Run("Wrong issuer", func(t *testing.T) {
		cfg := tr.Issue(t, cryptoutils.DefaultServerSubject, "Other-CA", time.Now().Add(time.Hour))
		_, err := v.Validate("/analyze", body, rawEnvelope(t, cfg, RoleServer, "/analyze", body))
		assert.ErrorIs(t, err, cryptoutils.ErrUnexpectedIssuer)
		assert.ErrorIs(t, err, cryptoutils.ErrUnexpectedClaims)
	})

	t.Run("Wrong subject", func(t *testing.T) {
		// A valid client credential presented as a server
		_, err := v.Validate("/analyze", body, rawEnvelope(t, tr.Client, RoleServer, "/analyze", body))
		assert.ErrorIs(t, err, cryptoutils.ErrUnexpectedSubject)
	})

	t.Run("Foreign root", func(t *testing.T) {
		other := envelopetest.NewTrust(t)
		_, err := v.Validate("/analyze", body, rawEnvelope(t, other.Server, RoleServer, "/analyze", body))
		assert.ErrorIs(t, err, cryptoutils.ErrInvalidCertificateSignature)
	})

	t.Run("Edited certificate", func(t *testing.T) {
		h := rawEnvelope(t, tr.Server, RoleServer, "/analyze", body)
		h.Set("X-SPE-Server-Cert", strings.Replace(tr.Server.Credential.Certificate, `"exp":`, `"exp": `, 1))
		_, err := v.Validate("/analyze", body, h)
		assert.ErrorIs(t, err, cryptoutils.ErrInvalidCertificateSignature)
	})

	t.Run("Undecodable certificate signature", func(t *testing.T) {
		h := rawEnvelope(t, tr.Server, RoleServer, "/analyze", body)
		h.Set("X-SPE-Server-CertSig", "%%%")
		_, err := v.Validate("/analyze", body, h)
		assert.ErrorIs(t, err, cryptoutils.ErrInvalidCertificateSignature)
		assert.ErrorIs(t, err, cryptoutils.ErrDecode)
	})

	t.Run("Short message signature", func(t *testing.T) {
		h := rawEnvelope(t, tr.Server, RoleServer, "/analyze", body)
		h.Set("X-SPE-Server-Sig", cryptoutils.Base64URLEncode(make([]byte, 10)))
		_, err := v.Validate("/analyze", body, h)
		assert.ErrorIs(t, err, cryptoutils.ErrInvalidResponseSignature)
		assert.ErrorIs(t, err, cryptoutils.ErrInvalidSignatureLength)
	})

	t.Run("Expired wins over valid signatures", func(t *testing.T) {
		late, err := NewValidator(tr.Client, RoleServer, func() time.Time { return time.Now().Add(2 * time.Hour) })
		require.NoError(t, err)
		_, err = late.Validate("/analyze", body, rawEnvelope(t, tr.Server, RoleServer, "/analyze", body))
		assert.ErrorIs(t, err, cryptoutils.ErrCertificateExpired)
	})
}

func TestBuilderLoadChecks(t *testing.T) {
	tr := envelopetest.NewTrust(t)

	t.Run("Wrong role subject", func(t *testing.T) {
		_, err := NewBuilder(tr.Client, RoleServer, nil)
		assert.ErrorIs(t, err, cryptoutils.ErrUnexpectedSubject)
	})

	t.Run("Key mismatch", func(t *testing.T) {
		cred := tr.Client.Credential
		cred.PrivateKey = tr.Server.Credential.PrivateKey
		_, err := NewBuilder(envelopetest.WithCredential(t, tr.Client, cred), RoleClient, nil)
		assert.ErrorIs(t, err, cryptoutils.ErrCredentialKeyMismatch)
	})

	t.Run("Short private key", func(t *testing.T) {
		cred := tr.Client.Credential
		cred.PrivateKey = cryptoutils.Base64URLEncode(make([]byte, 31))
		_, err := NewBuilder(envelopetest.WithCredential(t, tr.Client, cred), RoleClient, nil)
		assert.ErrorIs(t, err, cryptoutils.ErrInvalidKeyLength)
	})

	t.Run("Certificate not signed by root", func(t *testing.T) {
		other := envelopetest.NewTrust(t)
		cred := other.Client.Credential
		_, err := NewBuilder(envelopetest.WithCredential(t, tr.Client, cred), RoleClient, nil)
		assert.ErrorIs(t, err, cryptoutils.ErrInvalidCertificateSignature)
	})

	t.Run("Expired at load", func(t *testing.T) {
		cfg := tr.Issue(t, cryptoutils.DefaultClientSubject, cryptoutils.DefaultIssuer, time.Now().Add(-time.Second))
		_, err := NewBuilder(cfg, RoleClient, nil)
		assert.ErrorIs(t, err, cryptoutils.ErrCertificateExpired)
	})
}

func TestBuilderExpiresWhileRunning(t *testing.T) {
	tr := envelopetest.NewTrust(t)

	now := time.Now()
	clock := func() time.Time { return now }
	b, err := NewBuilder(tr.Client, RoleClient, clock)
	require.NoError(t, err)

	headers, err := b.Build("/analyze", []byte(`{"items":[]}`))
	require.NoError(t, err)
	require.Len(t, headers, 3)

	now = now.Add(2 * time.Hour)
	headers, err = b.Build("/analyze", []byte(`{"items":[]}`))
	assert.ErrorIs(t, err, cryptoutils.ErrCertificateExpired)
	assert.Nil(t, headers)
}

func TestCustomNamespace(t *testing.T) {
	tr := envelopetest.NewTrust(t)
	client := *tr.Client
	client.HeaderNamespace = "ACME"
	server := *tr.Server
	server.HeaderNamespace = "ACME"

	b, err := NewBuilder(&server, RoleServer, nil)
	require.NoError(t, err)
	v, err := NewValidator(&client, RoleServer, nil)
	require.NoError(t, err)

	headers, err := b.Build("/", nil)
	require.NoError(t, err)
	assert.Equal(t, "X-ACME-Server-Sig", headers[2].Name)

	_, err = v.Validate("/", nil, toHTTPHeader(headers))
	require.NoError(t, err)
}
