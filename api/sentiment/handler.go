package sentiment

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/spe-sentiment-envelope/analysis"
	"github.com/ruteri/spe-sentiment-envelope/api"
	"github.com/ruteri/spe-sentiment-envelope/cryptoutils"
	"github.com/ruteri/spe-sentiment-envelope/envelope"
	"github.com/ruteri/spe-sentiment-envelope/metrics"
	"go.uber.org/atomic"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// Handler serves the analysis endpoint. Every request must carry a valid
// client envelope and every response it writes is signed with the server
// credential.
type Handler struct {
	builder   *envelope.Builder
	validator *envelope.Validator
	analyzer  *analysis.Analyzer
	apiToken  string
	metrics   *metrics.MetricsServer
	log       *slog.Logger

	handshakeLogged atomic.Bool
}

// HandlerOption configures optional Handler dependencies.
type HandlerOption func(*Handler)

// WithAPIToken enables the token gate. Requests whose X-API-Token does not
// match get a signed {"ok":false,"results":[]}.
func WithAPIToken(token string) HandlerOption {
	return func(h *Handler) { h.apiToken = strings.TrimSpace(token) }
}

// WithMetrics records envelope and batch metrics.
func WithMetrics(m *metrics.MetricsServer) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler creates the analysis handler.
//
// Parameters:
//   - builder: server-role envelope builder for responses
//   - validator: validator for client-role envelopes on requests
//   - analyzer: the sentiment analyzer
//   - log: Structured logger for operational insights
func NewHandler(builder *envelope.Builder, validator *envelope.Validator, analyzer *analysis.Analyzer, log *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		builder:   builder,
		validator: validator,
		analyzer:  analyzer,
		log:       log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post(api.AnalyzePath, h.HandleAnalyze)
}

// HandleAnalyze scores a batch of comments.
//
// URL format: POST /analyze
//
// Request body: api.AnalyzeRequest, signed by the client envelope
//
// Response: api.AnalyzeResponse, signed by the server envelope. Refusals are
// api.ErrorResponse with 403 (envelope), 413 (body too large) or 422 (not a
// batch).
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		h.log.Error("Failed to read request body", "err", err)
		h.writeSigned(w, http.StatusBadRequest, api.ErrorResponse{Detail: "failed to read request body"})
		return
	}
	if len(body) > maxBodySize {
		h.metrics.ObserveRejected("too_large")
		h.writeSigned(w, http.StatusRequestEntityTooLarge, api.ErrorResponse{Detail: "request body too large"})
		return
	}

	peer, err := h.validator.Validate(api.AnalyzePath, body, r.Header)
	kind := cryptoutils.ErrorKind(err)
	h.metrics.ObserveEnvelope(metrics.DirectionInbound, kind)
	if err != nil {
		h.log.Warn("Rejected client envelope", "err", err, "kind", kind, "remoteAddr", r.RemoteAddr)
		h.writeSigned(w, http.StatusForbidden, api.ErrorResponse{Detail: err.Error()})
		return
	}

	if h.handshakeLogged.CompareAndSwap(false, true) {
		h.log.Info("Envelope handshake successful", "pluginID", peer.SubjectID)
	}

	if h.apiToken != "" {
		got := strings.TrimSpace(r.Header.Get(api.APITokenHeader))
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.apiToken)) != 1 {
			h.log.Warn("API token mismatch", "pluginID", peer.SubjectID)
			h.metrics.ObserveRejected("token")
			h.writeSigned(w, http.StatusOK, api.AnalyzeResponse{OK: false, Results: []analysis.Result{}})
			return
		}
	}

	var req api.AnalyzeRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Items == nil {
		if err == nil {
			err = errors.New("missing items")
		}
		h.log.Debug("Invalid analyze payload", "err", err)
		h.metrics.ObserveRejected("payload")
		h.writeSigned(w, http.StatusUnprocessableEntity, api.ErrorResponse{
			Detail: "Batch mode only. Provide 'items': [{...}, ...].",
		})
		return
	}

	items := req.Items
	if len(items) > api.MaxBatchItems {
		h.log.Warn("Batch truncated", "received", len(items), "limit", api.MaxBatchItems)
		items = items[:api.MaxBatchItems]
	}

	start := time.Now()
	results := make([]analysis.Result, 0, len(items))
	for _, it := range items {
		res := h.analyzer.Analyze(it.Text, it.ScoreTotal.Float())
		res.ID = it.ID
		results = append(results, res)
	}
	h.metrics.ObserveBatch(len(results), time.Since(start))

	h.writeSigned(w, http.StatusOK, api.AnalyzeResponse{OK: true, Results: results})
}

// writeSigned serializes v once and signs exactly those bytes. If the server
// credential can no longer sign, an unsigned 500 is returned and the client
// will refuse it.
func (h *Handler) writeSigned(w http.ResponseWriter, status int, v any) {
	body, err := api.MarshalCompact(v)
	if err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	headers, err := h.builder.Build(api.AnalyzePath, body)
	h.metrics.ObserveEnvelope(metrics.DirectionOutbound, cryptoutils.ErrorKind(err))
	if err != nil {
		h.log.Error("Failed to sign response", "err", err, "kind", cryptoutils.ErrorKind(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	headers.Apply(w.Header())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
