package pkihandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ruteri/spe-sentiment-envelope/api"
	"github.com/ruteri/spe-sentiment-envelope/cryptoutils"
)

// ErrTrustMismatch is returned when the remote API was provisioned
// differently from the local trust config.
var ErrTrustMismatch = errors.New("trust config mismatch")

// FetchTrustInfo retrieves the public trust material from the API at baseURL.
func FetchTrustInfo(ctx context.Context, baseURL string) (*api.TrustInfoResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+api.TrustInfoPath, nil)
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request trust info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("could not read trust info response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trust info request failed: %s", resp.Status)
	}

	var info api.TrustInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("could not parse trust info response: %w", err)
	}
	return &info, nil
}

// CheckAlignment compares the remote trust info with the local config and
// verifies the remote server certificate under the local root. A nil error
// means signed calls between the two can succeed.
func CheckAlignment(info *api.TrustInfoResponse, local *cryptoutils.TrustConfig, now time.Time) error {
	if info.RootPubkey != local.RootPublicKey {
		return fmt.Errorf("%w: root_pubkey differs", ErrTrustMismatch)
	}
	if info.HeaderNamespace != local.HeaderNamespace {
		return fmt.Errorf("%w: header namespace %q, local %q", ErrTrustMismatch, info.HeaderNamespace, local.HeaderNamespace)
	}
	if info.Issuer != local.Issuer {
		return fmt.Errorf("%w: issuer %q, local %q", ErrTrustMismatch, info.Issuer, local.Issuer)
	}

	sig, err := cryptoutils.Base64URLDecode(info.ServerCertSig)
	if err != nil {
		return fmt.Errorf("%w: %w", cryptoutils.ErrInvalidCertificateSignature, err)
	}
	if err := cryptoutils.VerifyIdentitySignature([]byte(info.ServerCert), sig, local.Root().PublicKey); err != nil {
		return err
	}
	id, err := cryptoutils.ParseIdentity([]byte(info.ServerCert))
	if err != nil {
		return err
	}
	return cryptoutils.CheckIdentity(id, local.ServerSubject, local.Issuer, now)
}
