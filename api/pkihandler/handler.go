package pkihandler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/spe-sentiment-envelope/api"
	"github.com/ruteri/spe-sentiment-envelope/cryptoutils"
)

// Handler serves the API's public trust material. Nothing secret is exposed:
// the certificate is already sent on every signed response.
type Handler struct {
	info api.TrustInfoResponse
	log  *slog.Logger
}

// NewHandler prepares the trust info from the server's trust config.
//
// Parameters:
//   - cfg: the validated server trust config
//   - log: Structured logger for operational insights
func NewHandler(cfg *cryptoutils.TrustConfig, log *slog.Logger) (*Handler, error) {
	id, err := cryptoutils.ParseIdentity([]byte(cfg.Credential.Certificate))
	if err != nil {
		return nil, err
	}
	return &Handler{
		info: api.TrustInfoResponse{
			Issuer:          cfg.Issuer,
			RootPubkey:      cfg.RootPublicKey,
			HeaderNamespace: cfg.HeaderNamespace,
			ServerCert:      cfg.Credential.Certificate,
			ServerCertSig:   cfg.Credential.CertificateSignature,
			Expires:         id.Expiry,
		},
		log: log,
	}, nil
}

// RegisterRoutes registers GET /api/public/trust.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get(api.TrustInfoPath, h.HandleTrustInfo)
}

// HandleTrustInfo returns the public trust material.
//
// URL format: GET /api/public/trust
//
// Response: JSON-encoded api.TrustInfoResponse
func (h *Handler) HandleTrustInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.info); err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
}
