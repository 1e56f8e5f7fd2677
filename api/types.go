package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ruteri/spe-sentiment-envelope/analysis"
)

const (
	// AnalyzePath is the logical path of the analysis endpoint. It is bound
	// into the canonical message of both the request and the response.
	AnalyzePath = "/analyze"

	// APITokenHeader carries the optional shared API token.
	APITokenHeader = "X-API-Token"

	// RequestIDHeader carries a client-generated correlation id. It is not
	// covered by the envelope signature.
	RequestIDHeader = "X-Request-ID"

	// MaxBatchItems is the largest number of items analyzed per request.
	// Extra items are dropped, not rejected.
	MaxBatchItems = 2000
)

// Score is a numeric rating. It accepts a JSON number or a numeric string.
type Score float64

func (s *Score) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return fmt.Errorf("invalid score %q", str)
		}
		*s = Score(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*s = Score(f)
	return nil
}

// Float returns the score as a *float64, nil when s is nil.
func (s *Score) Float() *float64 {
	if s == nil {
		return nil
	}
	f := float64(*s)
	return &f
}

// NewScore returns a pointer to v as a Score.
func NewScore(v float64) *Score {
	s := Score(v)
	return &s
}

// Item is one peer comment to analyze. ID is echoed back verbatim in the
// matching result; any JSON value is accepted. ScoreMin and ScoreMax are
// accepted from the plugin but do not move the disparity bands.
type Item struct {
	ID         json.RawMessage `json:"id,omitempty"`
	Text       string          `json:"text"`
	ScoreTotal *Score          `json:"score_total,omitempty"`
	ScoreMin   *Score          `json:"score_min,omitempty"`
	ScoreMax   *Score          `json:"score_max,omitempty"`
}

// AnalyzeRequest is the body of POST /analyze. A missing or null items field
// is rejected; an empty list is a valid, empty batch.
type AnalyzeRequest struct {
	Items []Item `json:"items"`
}

// AnalyzeResponse is the body of a successful POST /analyze. OK is false when
// the API token did not match.
type AnalyzeResponse struct {
	OK      bool              `json:"ok"`
	Results []analysis.Result `json:"results"`
}

// ErrorResponse is the body of a refused request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// MarshalCompact encodes v as compact JSON without HTML escaping and without
// a trailing newline. The result is the exact byte sequence that is signed
// and sent.
func MarshalCompact(v any) ([]byte, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return []byte(strings.TrimSuffix(sb.String(), "\n")), nil
}

// TrustInfoPath serves the API's public trust material.
const TrustInfoPath = "/api/public/trust"

// TrustInfoResponse is the public trust material of the API: its root, header
// namespace and own certificate. It lets a plugin operator check that both
// sides were provisioned from the same root before any signed call is made.
type TrustInfoResponse struct {
	Issuer          string `json:"issuer"`
	RootPubkey      string `json:"root_pubkey"`
	HeaderNamespace string `json:"header_namespace"`
	ServerCert      string `json:"server_cert"`
	ServerCertSig   string `json:"server_cert_sig"`
	Expires         int64  `json:"expires"`
}
