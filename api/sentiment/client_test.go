package sentiment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/spe-sentiment-envelope/analysis"
	"github.com/ruteri/spe-sentiment-envelope/api"
	"github.com/ruteri/spe-sentiment-envelope/cryptoutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer runs the analysis handler behind a real listener.
func startServer(t *testing.T, env *testEnv, opts ...HandlerOption) *httptest.Server {
	handler := NewHandler(env.serverBuilder, env.serverValidator, analysis.NewAnalyzer(nil), env.log, opts...)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	r.Get("/livez", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClientEndpoint(t *testing.T) {
	env := setupTestEnvironment(t)

	testCases := []struct {
		in   string
		want string
	}{
		{in: "http://api.local", want: "http://api.local/analyze"},
		{in: "http://api.local/", want: "http://api.local/analyze"},
		{in: "http://api.local/analyze", want: "http://api.local/analyze"},
		{in: " http://api.local/v1 ", want: "http://api.local/v1/analyze"},
	}
	for _, tc := range testCases {
		c := NewClient(tc.in, env.clientBuilder, env.clientValidator, env.log)
		assert.Equal(t, tc.want, c.Endpoint(), tc.in)
	}
}

func TestClientAnalyze_EndToEnd(t *testing.T) {
	env := setupTestEnvironment(t)
	srv := startServer(t, env, WithAPIToken("secret"))

	client := NewClient(srv.URL, env.clientBuilder, env.clientValidator, env.log, WithToken("secret"))
	require.NoError(t, client.Probe(context.Background()))

	results, err := client.Analyze(context.Background(), []api.Item{
		{ID: json.RawMessage(`"r1"`), Text: "Great teammate, very helpful and reliable.", ScoreTotal: api.NewScore(7)},
		{ID: json.RawMessage(`"r2"`), Text: "The meeting was on Tuesday"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.JSONEq(t, `"r1"`, string(results[0].ID))
	assert.Equal(t, analysis.LabelPositive, results[0].Label)
	assert.True(t, results[0].Disparity)
	assert.Equal(t, analysis.LabelNeutral, results[1].Label)

	// Empty and nil batches are sent as an empty list
	results, err = client.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClientAnalyze_TokenMismatch(t *testing.T) {
	env := setupTestEnvironment(t)
	srv := startServer(t, env, WithAPIToken("secret"))

	client := NewClient(srv.URL, env.clientBuilder, env.clientValidator, env.log, WithToken("wrong"))
	_, err := client.Analyze(context.Background(), []api.Item{{Text: "hi"}})
	assert.ErrorIs(t, err, ErrBatchRejected)
}

func TestClientAnalyze_UntrustedClient(t *testing.T) {
	env := setupTestEnvironment(t)
	srv := startServer(t, env)

	// A client credential issued by another root is refused
	c := setupTestEnvironment(t)
	client := NewClient(srv.URL, c.clientBuilder, env.clientValidator, env.log)

	_, err := client.Analyze(context.Background(), []api.Item{{Text: "hi"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "403")
}

func TestClientAnalyze_RejectsTamperedResponse(t *testing.T) {
	env := setupTestEnvironment(t)
	upstream := startServer(t, env)

	// A proxy that alters one byte of the signed body
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := http.NewRequestWithContext(r.Context(), r.Method, upstream.URL+r.URL.Path, r.Body)
		require.NoError(t, err)
		req.Header = r.Header.Clone()
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		for k, v := range resp.Header {
			w.Header()[k] = v
		}
		w.Header().Del("Content-Length")
		body[len(body)-2] ^= 0x01
		w.WriteHeader(resp.StatusCode)
		w.Write(body)
	}))
	defer proxy.Close()

	client := NewClient(proxy.URL, env.clientBuilder, env.clientValidator, env.log)
	_, err := client.Analyze(context.Background(), []api.Item{{Text: "hi"}})
	assert.ErrorIs(t, err, cryptoutils.ErrInvalidResponseSignature)
	assert.ErrorIs(t, err, cryptoutils.ErrInvalidMessageSignature)
}

func TestClientAnalyze_UnsignedResponse(t *testing.T) {
	env := setupTestEnvironment(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"results":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, env.clientBuilder, env.clientValidator, env.log)
	_, err := client.Analyze(context.Background(), []api.Item{{Text: "hi"}})
	assert.ErrorIs(t, err, cryptoutils.ErrMissingAuthHeaders)
}

func TestClientAnalyze_MalformedSignedResponse(t *testing.T) {
	env := setupTestEnvironment(t)

	testCases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "Missing results", status: http.StatusOK, body: `{"ok":true}`, wantErr: ErrMalformedResponse},
		{name: "Not JSON", status: http.StatusOK, body: `<html>`, wantErr: ErrMalformedResponse},
		{name: "Server error", status: http.StatusBadGateway, body: `{"detail":"upstream"}`, wantErr: ErrUnexpectedStatus},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				headers, err := env.serverBuilder.Build(api.AnalyzePath, []byte(tc.body))
				require.NoError(t, err)
				headers.Apply(w.Header())
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, env.clientBuilder, env.clientValidator, env.log)
			_, err := client.Analyze(context.Background(), []api.Item{{Text: "hi"}})
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestClientAnalyze_ResponseTooLarge(t *testing.T) {
	env := setupTestEnvironment(t)
	body := []byte(`{"ok":true,"results":[],"pad":"` + strings.Repeat("a", maxResponseSize) + `"}`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers, err := env.serverBuilder.Build(api.AnalyzePath, body)
		require.NoError(t, err)
		headers.Apply(w.Header())
		w.Write(body)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, env.clientBuilder, env.clientValidator, env.log)
	_, err := client.Analyze(context.Background(), []api.Item{{Text: "hi"}})
	assert.ErrorIs(t, err, ErrResponseTooLarge)
	assert.NotErrorIs(t, err, cryptoutils.ErrInvalidResponseSignature)
}

func TestClientProbe_Unreachable(t *testing.T) {
	env := setupTestEnvironment(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, env.clientBuilder, env.clientValidator, env.log)
	assert.ErrorIs(t, client.Probe(context.Background()), ErrUnreachable)

	_, err := client.Analyze(context.Background(), []api.Item{{Text: "hi"}})
	assert.ErrorIs(t, err, ErrUnreachable)
}
