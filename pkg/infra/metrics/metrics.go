package metrics

import (
	"net/http"

	"github.com/m-mizutani/fplfetch/pkg/domain/model"
	"github.com/m-mizutani/fplfetch/pkg/domain/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds fetch counters on a private registry
type Metrics struct {
	registry   *prometheus.Registry
	fetches    *prometheus.CounterVec
	downloaded prometheus.Counter
}

// New creates and registers the fetch metrics
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: types.ServiceName,
			Name:      "fetch_total",
			Help:      "Number of dataset fetches by outcome.",
		}, []string{"result"}),
		downloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: types.ServiceName,
			Name:      "downloaded_bytes_total",
			Help:      "Bytes written to the archive file.",
		}),
	}
	m.registry.MustRegister(m.fetches, m.downloaded)

	return m
}

// RecordFetch counts a finished fetch
func (m *Metrics) RecordFetch(outcome model.FetchOutcome) {
	m.fetches.WithLabelValues(string(outcome)).Inc()
}

// AddDownloadedBytes counts archive bytes written
func (m *Metrics) AddDownloadedBytes(n int64) {
	if n > 0 {
		m.downloaded.Add(float64(n))
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
