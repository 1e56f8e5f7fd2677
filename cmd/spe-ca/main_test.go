package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ruteri/spe-sentiment-envelope/cryptoutils"
	"github.com/ruteri/spe-sentiment-envelope/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	root, err := generateRoot(cryptoutils.DefaultIssuer, now)
	require.NoError(t, err)

	apiCfg, err := issue(root, cryptoutils.DefaultServerSubject, cryptoutils.DefaultHeaderNamespace, 24*time.Hour, now)
	require.NoError(t, err)
	pluginCfg, err := issue(root, cryptoutils.DefaultClientSubject, cryptoutils.DefaultHeaderNamespace, 24*time.Hour, now)
	require.NoError(t, err)

	role, id, err := verify(apiCfg, "auto", now)
	require.NoError(t, err)
	assert.Equal(t, envelope.RoleServer, role)
	assert.Equal(t, cryptoutils.DefaultServerSubject, id.SubjectID)

	role, _, err = verify(pluginCfg, "auto", now)
	require.NoError(t, err)
	assert.Equal(t, envelope.RoleClient, role)

	// A plugin credential cannot serve as the API
	_, _, err = verify(pluginCfg, "server", now)
	assert.ErrorIs(t, err, cryptoutils.ErrUnexpectedSubject)

	_, _, err = verify(apiCfg, "auto", now.Add(25*time.Hour))
	assert.ErrorIs(t, err, cryptoutils.ErrCertificateExpired)

	_, _, err = verify(apiCfg, "observer", now)
	assert.Error(t, err)
}

func TestIssueRejectsInconsistentRoot(t *testing.T) {
	now := time.Now()
	root, err := generateRoot(cryptoutils.DefaultIssuer, now)
	require.NoError(t, err)
	other, err := generateRoot(cryptoutils.DefaultIssuer, now)
	require.NoError(t, err)

	root.RootPub = other.RootPub
	_, err = issue(root, cryptoutils.DefaultClientSubject, cryptoutils.DefaultHeaderNamespace, time.Hour, now)
	assert.Error(t, err)
}

func TestWriteConfigPublic(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	root, err := generateRoot(cryptoutils.DefaultIssuer, now)
	require.NoError(t, err)
	cfg, err := issue(root, cryptoutils.DefaultClientSubject, cryptoutils.DefaultHeaderNamespace, time.Hour, now)
	require.NoError(t, err)

	fullPath := filepath.Join(dir, "full.json")
	publicPath := filepath.Join(dir, "public.json")
	require.NoError(t, writeConfig(cfg, fullPath, false))
	require.NoError(t, writeConfig(cfg, publicPath, true))

	full, err := os.ReadFile(fullPath)
	require.NoError(t, err)
	loaded, err := cryptoutils.ParseTrustConfig(full)
	require.NoError(t, err)
	assert.Equal(t, cfg.Credential, loaded.Credential)

	public, err := os.ReadFile(publicPath)
	require.NoError(t, err)
	assert.NotContains(t, string(public), cfg.Credential.PrivateKey)

	// The public half plus the seed is a complete, usable config
	reassembled, err := cryptoutils.ParseTrustConfig(public, cryptoutils.WithPrivateKey(cfg.Credential.PrivateKey))
	require.NoError(t, err)
	_, err = envelope.NewBuilder(reassembled, envelope.RoleClient, time.Now)
	require.NoError(t, err)
}
