// Package metrics exposes Prometheus metrics for envelope checks and analysis
// batches, served on a dedicated listener.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Envelope check directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// MetricsServer owns a private registry and the HTTP server that exposes it.
type MetricsServer struct {
	registry *prometheus.Registry
	srv      *http.Server

	EnvelopeChecks  *prometheus.CounterVec
	AnalyzedItems   prometheus.Counter
	BatchesRejected *prometheus.CounterVec
	BatchDuration   prometheus.Histogram
}

// New registers all collectors under namespace. An empty addr still returns a
// usable server; ListenAndServe is simply never called for it.
func New(namespace, addr string) (*MetricsServer, error) {
	m := &MetricsServer{
		registry: prometheus.NewRegistry(),
		EnvelopeChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envelope_checks_total",
			Help:      "Envelope builds and validations by direction and result kind",
		}, []string{"direction", "result"}),
		AnalyzedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyzed_items_total",
			Help:      "Comments scored by the analysis endpoint",
		}),
		BatchesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_rejected_total",
			Help:      "Analysis batches rejected before scoring, by reason",
		}, []string{"reason"}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time spent scoring one batch",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.EnvelopeChecks, m.AnalyzedItems, m.BatchesRejected, m.BatchDuration} {
		if err := m.registry.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return nil, err
		}
	}

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry}))
	m.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return m, nil
}

// Registry returns the registry backing this server.
func (m *MetricsServer) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics router, for tests and embedding.
func (m *MetricsServer) Handler() http.Handler {
	return m.srv.Handler
}

// ObserveEnvelope counts one envelope build or validation. kind is the label
// produced by cryptoutils.ErrorKind.
func (m *MetricsServer) ObserveEnvelope(direction, kind string) {
	if m == nil {
		return
	}
	m.EnvelopeChecks.WithLabelValues(direction, kind).Inc()
}

// ObserveBatch records a scored batch of n items.
func (m *MetricsServer) ObserveBatch(n int, took time.Duration) {
	if m == nil {
		return
	}
	m.AnalyzedItems.Add(float64(n))
	m.BatchDuration.Observe(took.Seconds())
}

// ObserveRejected counts a batch refused before scoring.
func (m *MetricsServer) ObserveRejected(reason string) {
	if m == nil {
		return
	}
	m.BatchesRejected.WithLabelValues(reason).Inc()
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
