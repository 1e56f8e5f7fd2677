package pkihandler

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/spe-sentiment-envelope/cryptoutils"
	"github.com/ruteri/spe-sentiment-envelope/envelope/envelopetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTrustServer(t *testing.T, cfg *cryptoutils.TrustConfig) string {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler, err := NewHandler(cfg, logger)
	require.NoError(t, err)

	mux := chi.NewRouter()
	handler.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestTrustInfoAligned(t *testing.T) {
	trust := envelopetest.NewTrust(t)
	url := startTrustServer(t, trust.Server)

	info, err := FetchTrustInfo(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, trust.Server.RootPublicKey, info.RootPubkey)
	assert.Equal(t, trust.Server.Credential.Certificate, info.ServerCert)
	assert.NotZero(t, info.Expires)

	require.NoError(t, CheckAlignment(info, trust.Client, time.Now()))

	// Once the server certificate has expired the check fails
	err = CheckAlignment(info, trust.Client, time.Now().Add(2*time.Hour))
	assert.ErrorIs(t, err, cryptoutils.ErrCertificateExpired)
}

func TestTrustInfoMisaligned(t *testing.T) {
	trust := envelopetest.NewTrust(t)
	other := envelopetest.NewTrust(t)
	url := startTrustServer(t, other.Server)

	info, err := FetchTrustInfo(context.Background(), url)
	require.NoError(t, err)
	assert.ErrorIs(t, CheckAlignment(info, trust.Client, time.Now()), ErrTrustMismatch)

	// Same root key but a forged certificate
	info.RootPubkey = trust.Client.RootPublicKey
	assert.ErrorIs(t, CheckAlignment(info, trust.Client, time.Now()), cryptoutils.ErrInvalidCertificateSignature)

	// A server presenting the plugin's certificate is not the API
	url = startTrustServer(t, trust.Client)
	info, err = FetchTrustInfo(context.Background(), url)
	require.NoError(t, err)
	assert.ErrorIs(t, CheckAlignment(info, trust.Client, time.Now()), cryptoutils.ErrUnexpectedSubject)
}
