// Package metrics instruments document generation and the HTTP surface
// with Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	generations     *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	pages           *prometheus.CounterVec
	imageFallbacks  prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpRequestTime *prometheus.HistogramVec
}

// New builds and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "calbook",
				Name:      "generations_total",
				Help:      "Document generations by type and result.",
			},
			[]string{"type", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "calbook",
				Name:      "generation_duration_seconds",
				Help:      "Wall time of one document generation.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"type"},
		),
		pages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "calbook",
				Name:      "pages_total",
				Help:      "Pages written into generated documents by origin.",
			},
			[]string{"origin"},
		),
		imageFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "calbook",
				Name:      "image_fallbacks_total",
				Help:      "Event photos that could not be read and were replaced by a placeholder or blank slot.",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "calbook",
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status.",
			},
			[]string{"route", "method", "status"},
		),
		httpRequestTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "calbook",
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
	m.registry.MustRegister(
		m.generations,
		m.duration,
		m.pages,
		m.imageFallbacks,
		m.httpRequests,
		m.httpRequestTime,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveGeneration records one finished generation. A nil receiver is a
// no-op so callers need not check whether metrics are enabled.
func (m *Metrics) ObserveGeneration(genType string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.generations.WithLabelValues(genType, result).Inc()
	m.duration.WithLabelValues(genType).Observe(elapsed.Seconds())
}

// AddPages counts pages written from origin ("calendar" or "header").
func (m *Metrics) AddPages(origin string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.pages.WithLabelValues(origin).Add(float64(n))
}

// ImageFallback counts one unreadable event photo.
func (m *Metrics) ImageFallback() {
	if m == nil {
		return
	}
	m.imageFallbacks.Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, http.StatusText(status)).Inc()
	m.httpRequestTime.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
