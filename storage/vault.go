package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/spe-sentiment-envelope/interfaces"
)

// VaultSource reads a trust config from a HashiCorp Vault KV v2 secret.
// The config is stored as a string under a single key of the secret data.
type VaultSource struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	key         string
	log         *slog.Logger
	locationURI string
}

// NewVaultSource creates a Vault source.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: secret path within the mount (e.g. "spe/plugin")
//   - key: field of the secret holding the trust config, "content" if empty
//   - token: Vault token; when empty the client falls back to VAULT_TOKEN
func NewVaultSource(address, mountPath, dataPath, key, token string, log *slog.Logger) (*VaultSource, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	if key == "" {
		key = "content"
	}
	mountPath = strings.Trim(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	host := strings.TrimPrefix(strings.TrimPrefix(address, "https://"), "http://")
	locationURI := fmt.Sprintf("vault://%s/%s/%s?key=%s", host, mountPath, dataPath, key)
	if strings.HasPrefix(address, "http://") {
		locationURI += "&tls=false"
	}

	return &VaultSource{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		key:         key,
		log:         log,
		locationURI: locationURI,
	}, nil
}

func (s *VaultSource) secretPath() string {
	return fmt.Sprintf("%s/data/%s", s.mountPath, s.dataPath)
}

// Fetch reads the secret and returns the configured key's value.
func (s *VaultSource) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	path := s.secretPath()

	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.log.Error("Failed to read from Vault", slog.String("path", path), "err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		s.log.Debug("Trust config not found in Vault", slog.String("path", path))
		return nil, interfaces.ErrContentNotFound
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response at %s", path)
	}
	content, ok := data[s.key]
	if !ok {
		return nil, fmt.Errorf("%w: key %q not found in Vault secret", interfaces.ErrContentNotFound, s.key)
	}
	contentStr, ok := content.(string)
	if !ok {
		return nil, fmt.Errorf("invalid content format in Vault secret at %s", path)
	}

	s.log.Info("Fetched trust config from Vault",
		slog.String("path", path),
		slog.Duration("duration", time.Since(start)))
	return []byte(contentStr), nil
}

// Store writes data under the configured key, replacing the secret version.
func (s *VaultSource) Store(ctx context.Context, data []byte) (string, error) {
	path := s.secretPath()
	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			s.key: string(data),
		},
	}

	if _, err := s.client.Logical().WriteWithContext(ctx, path, secretData); err != nil {
		s.log.Error("Failed to write to Vault", slog.String("path", path), "err", err)
		return "", fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return s.locationURI, nil
}

// Available checks that Vault is initialized and unsealed.
func (s *VaultSource) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := s.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		s.log.Debug("Vault health check failed", "err", err)
		return false
	}
	if !health.Initialized || health.Sealed {
		s.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}
	return true
}

func (s *VaultSource) Name() string {
	return fmt.Sprintf("vault-%s-%s", s.mountPath, s.dataPath)
}

func (s *VaultSource) LocationURI() string {
	return s.locationURI
}
