// Package metrics provides Prometheus metrics for wikifeed.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/starford/wikifeed/internal/memo"
	"github.com/starford/wikifeed/internal/models"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	SyncsTotal       *prometheus.CounterVec
	SyncDuration     prometheus.Histogram
	SyncFilesUpdated prometheus.Counter
	PagesIndexed     prometheus.Gauge
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		SyncsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wikifeed_syncs_total",
				Help: "Repository sync attempts by status and whether changes were pulled.",
			},
			[]string{"status", "changed"},
		),
		SyncDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wikifeed_sync_duration_seconds",
				Help:    "Duration of repository sync attempts.",
				Buckets: prometheus.DefBuckets,
			},
		),
		SyncFilesUpdated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wikifeed_sync_files_updated_total",
				Help: "Files reported changed by successful pulls.",
			},
		),
		PagesIndexed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wikifeed_pages_indexed",
				Help: "Pages currently present in the search index.",
			},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wikifeed_http_requests_total",
				Help: "HTTP requests by route pattern and status code.",
			},
			[]string{"method", "route", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wikifeed_http_request_duration_seconds",
				Help:    "HTTP request duration by route pattern.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		registry: reg,
	}

	reg.MustRegister(m.SyncsTotal)
	reg.MustRegister(m.SyncDuration)
	reg.MustRegister(m.SyncFilesUpdated)
	reg.MustRegister(m.PagesIndexed)
	reg.MustRegister(m.RequestsTotal)
	reg.MustRegister(m.RequestDuration)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSync records one sync attempt. It satisfies gitsync.Observer.
func (m *Metrics) ObserveSync(res models.SyncResult, elapsed time.Duration) {
	m.SyncsTotal.WithLabelValues(res.Status, strconv.FormatBool(res.ChangesDetected)).Inc()
	m.SyncDuration.Observe(elapsed.Seconds())
	if res.OK() {
		m.SyncFilesUpdated.Add(float64(len(res.FilesUpdated)))
	}
}

// SetPagesIndexed sets the indexed page gauge.
func (m *Metrics) SetPagesIndexed(n int) {
	m.PagesIndexed.Set(float64(n))
}

// WatchCardCache exports the card cache counters, read at scrape time.
func (m *Metrics) WatchCardCache(stats func() memo.Stats) {
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "wikifeed_card_cache_hits_total",
			Help: "Card cache lookups served from memory.",
		}, func() float64 { return float64(stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "wikifeed_card_cache_misses_total",
			Help: "Card cache lookups that required parsing.",
		}, func() float64 { return float64(stats().Misses) }),
	)
}

// Middleware counts requests by their chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(code)).Inc()
		m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
