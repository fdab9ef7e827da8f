// Package metrics exposes Prometheus metrics for sync runs and provider traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "catalog_sync"

// Metrics holds the sync collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	RunsTotal             *prometheus.CounterVec
	ListingsTotal         *prometheus.CounterVec
	ErrorsTotal           *prometheus.CounterVec
	ProviderRequestsTotal *prometheus.CounterVec
	RunDurationSeconds    *prometheus.HistogramVec
}

// New creates and registers the collectors on reg, or the default registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Sync runs by provider and final status",
		}, []string{"provider", "status"}),
		ListingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_total",
			Help:      "Dispatched listings by provider and ingestion action",
		}, []string{"provider", "action"}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Isolated sync errors by provider and category",
		}, []string{"provider", "category"}),
		ProviderRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Provider HTTP requests by provider and outcome",
		}, []string{"provider", "outcome"}),
		RunDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of sync runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"provider"}),
	}
}

func (m *Metrics) ObserveRun(provider, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(provider, status).Inc()
	m.RunDurationSeconds.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) IncListing(provider, action string) {
	if m == nil {
		return
	}
	m.ListingsTotal.WithLabelValues(provider, action).Inc()
}

func (m *Metrics) IncError(provider, category string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(provider, category).Inc()
}

// AddErrors adds n errors of category, for errors counted before any item is processed.
func (m *Metrics) AddErrors(provider, category string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ErrorsTotal.WithLabelValues(provider, category).Add(float64(n))
}

func (m *Metrics) IncProviderRequest(provider, outcome string) {
	if m == nil {
		return
	}
	m.ProviderRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
