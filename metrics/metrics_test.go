package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServer(t *testing.T) {
	m, err := New("spe_test", "")
	require.NoError(t, err)

	m.ObserveEnvelope(DirectionInbound, "ok")
	m.ObserveEnvelope(DirectionInbound, "ok")
	m.ObserveEnvelope(DirectionInbound, "invalid_request_signature")
	m.ObserveBatch(3, 10*time.Millisecond)
	m.ObserveRejected("token")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EnvelopeChecks.WithLabelValues(DirectionInbound, "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.AnalyzedItems))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesRejected.WithLabelValues("token")))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "spe_test_envelope_checks_total")
	assert.Contains(t, string(body), "spe_test_analyzed_items_total 3")
}

func TestNilMetricsServerIsNoop(t *testing.T) {
	var m *MetricsServer
	m.ObserveEnvelope(DirectionOutbound, "ok")
	m.ObserveBatch(1, time.Second)
	m.ObserveRejected("x")
}
