package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/spe-sentiment-envelope/analysis"
	"github.com/ruteri/spe-sentiment-envelope/api"
	"github.com/ruteri/spe-sentiment-envelope/envelope"
)

const (
	// maxResponseSize bounds the response body read from the API.
	maxResponseSize = 16 * 1024 * 1024

	defaultAnalyzeTimeout = 60 * time.Second
	defaultProbeTimeout   = 5 * time.Second
)

var (
	// ErrUnreachable is returned when the API cannot be contacted at all.
	ErrUnreachable = errors.New("sentiment API unreachable")

	// ErrUnexpectedStatus is returned for a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status from sentiment API")

	// ErrMalformedResponse is returned when a verified body is not a valid
	// analysis response.
	ErrMalformedResponse = errors.New("malformed response from sentiment API")

	// ErrResponseTooLarge is returned when the response body exceeds
	// maxResponseSize. The body is not verified.
	ErrResponseTooLarge = errors.New("sentiment API response too large")

	// ErrBatchRejected is returned when the API answers ok:false, which it
	// does on an API token mismatch.
	ErrBatchRejected = errors.New("sentiment API rejected the batch")
)

// Client is the plugin side of the analysis exchange. It signs each request
// with the client credential and accepts a response only if the server
// envelope validates over the exact response bytes. It never retries.
type Client struct {
	endpoint   string
	baseURL    string
	apiToken   string
	builder    *envelope.Builder
	validator  *envelope.Validator
	httpClient *http.Client
	log        *slog.Logger
}

// ClientOption configures optional Client settings.
type ClientOption func(*Client)

// WithToken sets the X-API-Token header on every request.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.apiToken = strings.TrimSpace(token) }
}

// WithHTTPClient replaces the default HTTP client (60s timeout).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for apiURL, which may be the service base URL or
// the full analyze URL. builder must sign as the client role and validator
// must check the server role.
func NewClient(apiURL string, builder *envelope.Builder, validator *envelope.Validator, log *slog.Logger, opts ...ClientOption) *Client {
	endpoint := strings.TrimSpace(apiURL)
	if !strings.Contains(endpoint, api.AnalyzePath) {
		endpoint = strings.TrimRight(endpoint, "/") + api.AnalyzePath
	}
	base := strings.TrimSuffix(strings.TrimRight(endpoint, "/"), api.AnalyzePath)

	c := &Client{
		endpoint:   endpoint,
		baseURL:    base,
		builder:    builder,
		validator:  validator,
		httpClient: &http.Client{Timeout: defaultAnalyzeTimeout},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the analyze URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Probe checks that the API answers its liveness endpoint.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/livez", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: liveness returned %d", ErrUnreachable, resp.StatusCode)
	}
	return nil
}

// Analyze sends items for scoring and returns one verified result per item.
// At most api.MaxBatchItems are sent; the rest are dropped.
func (c *Client) Analyze(ctx context.Context, items []api.Item) ([]analysis.Result, error) {
	if len(items) > api.MaxBatchItems {
		c.log.Warn("Truncating batch", "items", len(items), "limit", api.MaxBatchItems)
		items = items[:api.MaxBatchItems]
	}
	if items == nil {
		items = []api.Item{}
	}

	// These exact bytes are both signed and sent.
	body, err := api.MarshalCompact(api.AnalyzeRequest{Items: items})
	if err != nil {
		return nil, fmt.Errorf("could not encode request: %w", err)
	}

	envHeaders, err := c.builder.Build(api.AnalyzePath, body)
	if err != nil {
		return nil, fmt.Errorf("could not sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.RequestIDHeader, requestID)
	if c.apiToken != "" {
		req.Header.Set(api.APITokenHeader, c.apiToken)
	}
	envHeaders.Apply(req.Header)

	log := c.log.With("requestID", requestID)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("Sentiment API request failed", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: could not read response: %w", ErrUnreachable, err)
	}
	if len(respBody) > maxResponseSize {
		log.Warn("Sentiment API response too large", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, maxResponseSize)
	}

	// The envelope is checked before the status or the body are looked at.
	if _, err := c.validator.Validate(api.AnalyzePath, respBody, resp.Header); err != nil {
		log.Warn("Rejected server envelope", "err", err, "status", resp.StatusCode)
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%w %d: %w", ErrUnexpectedStatus, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("could not verify response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var detail api.ErrorResponse
		_ = json.Unmarshal(respBody, &detail)
		return nil, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, detail.Detail)
	}

	var parsed struct {
		OK      *bool             `json:"ok"`
		Results []analysis.Result `json:"results"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if parsed.OK != nil && !*parsed.OK {
		return nil, ErrBatchRejected
	}
	if parsed.Results == nil {
		return nil, fmt.Errorf("%w: missing results", ErrMalformedResponse)
	}

	log.Debug("Analyzed batch",
		"items", len(items),
		"results", len(parsed.Results),
		"duration", time.Since(start))
	return parsed.Results, nil
}
