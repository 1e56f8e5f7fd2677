package cryptoutils

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
)

// Defaults used when a trust config leaves the corresponding field empty.
const (
	DefaultIssuer          = "SPE-CA"
	DefaultHeaderNamespace = "SPE"
	DefaultClientSubject   = "spe-plugin"
	DefaultServerSubject   = "spe-api"
)

// TrustRoot is the certificate authority every party trusts unconditionally.
type TrustRoot struct {
	Issuer    string
	PublicKey ed25519.PublicKey
}

// Credential is one party's provisioned trust material: its identity JSON
// text exactly as issued, the root's base64url signature over that text, and
// its own base64url private key seed.
type Credential struct {
	Certificate          string `json:"cert"`
	CertificateSignature string `json:"cert_sig"`
	PrivateKey           string `json:"privkey,omitempty"`
}

// TrustConfig is the process-wide trust material, loaded once at startup and
// read-only afterwards.
type TrustConfig struct {
	Issuer          string     `json:"issuer"`
	RootPublicKey   string     `json:"root_pubkey"`
	HeaderNamespace string     `json:"header_namespace,omitempty"`
	ClientSubject   string     `json:"client_subject,omitempty"`
	ServerSubject   string     `json:"server_subject,omitempty"`
	Credential      Credential `json:"credential"`

	root TrustRoot
}

// TrustOption adjusts a decoded trust config before it is validated.
type TrustOption func(*TrustConfig)

// WithPrivateKey overrides the credential's private key seed. It lets the
// public part of a config be published while the seed is supplied separately.
// An empty seed leaves the config unchanged.
func WithPrivateKey(seedB64 string) TrustOption {
	return func(c *TrustConfig) {
		if seedB64 != "" {
			c.Credential.PrivateKey = seedB64
		}
	}
}

// ParseTrustConfig decodes and validates a JSON trust config. Unknown fields
// are rejected so that typos in provisioning do not silently fall back to
// defaults.
func ParseTrustConfig(data []byte, opts ...TrustOption) (*TrustConfig, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var cfg TrustConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("could not parse trust config: %w", err)
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fills defaults and checks that the root key and credential are
// structurally usable.
func (c *TrustConfig) Validate() error {
	if c.Issuer == "" {
		c.Issuer = DefaultIssuer
	}
	if c.HeaderNamespace == "" {
		c.HeaderNamespace = DefaultHeaderNamespace
	}
	if c.ClientSubject == "" {
		c.ClientSubject = DefaultClientSubject
	}
	if c.ServerSubject == "" {
		c.ServerSubject = DefaultServerSubject
	}

	if c.RootPublicKey == "" {
		return errors.New("trust config: root_pubkey is required")
	}
	rootPub, err := Base64URLDecode(c.RootPublicKey)
	if err != nil {
		return fmt.Errorf("trust config: root_pubkey: %w", err)
	}
	if len(rootPub) != PublicKeySize {
		return fmt.Errorf("trust config: root_pubkey: %w: %d bytes", ErrInvalidKeyLength, len(rootPub))
	}

	if c.Credential.Certificate == "" || c.Credential.CertificateSignature == "" || c.Credential.PrivateKey == "" {
		return errors.New("trust config: credential requires cert, cert_sig and privkey")
	}

	c.root = TrustRoot{Issuer: c.Issuer, PublicKey: ed25519.PublicKey(rootPub)}
	return nil
}

// Root returns the trust root. Validate must have succeeded.
func (c *TrustConfig) Root() TrustRoot {
	return c.root
}

// Marshal encodes the config as indented JSON for provisioning files.
func (c *TrustConfig) Marshal() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// MarshalPublic is Marshal without the private key seed.
func (c *TrustConfig) MarshalPublic() ([]byte, error) {
	public := *c
	public.Credential.PrivateKey = ""
	return public.Marshal()
}

// GenerateKeypair returns a fresh base64url seed and its raw public key.
func GenerateKeypair() (string, ed25519.PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate Ed25519 key: %w", err)
	}
	return Base64URLEncode(priv.Seed()), pub, nil
}
