// Package observability provides Prometheus metrics for the application.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics. A nil *Metrics is valid and turns
// every record method into a no-op, which keeps tests free of registry
// bookkeeping.
type Metrics struct {
	registry *prometheus.Registry

	// Download metrics
	DownloadsStarted   *prometheus.CounterVec
	DownloadsCompleted *prometheus.CounterVec
	DownloadsFailed    *prometheus.CounterVec
	DownloadsInFlight  prometheus.Gauge
	DownloadDuration   *prometheus.HistogramVec

	// Push-channel metrics
	SessionsConnected prometheus.Gauge
	EventsSent        prometheus.Counter
	EventsDropped     prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all application metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry: registry,

		DownloadsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vidrelay",
			Subsystem: "downloads",
			Name:      "started_total",
			Help:      "Total number of downloads started",
		}, []string{"kind"}),
		DownloadsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vidrelay",
			Subsystem: "downloads",
			Name:      "completed_total",
			Help:      "Total number of downloads completed successfully",
		}, []string{"kind"}),
		DownloadsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vidrelay",
			Subsystem: "downloads",
			Name:      "failed_total",
			Help:      "Total number of downloads that failed",
		}, []string{"kind", "reason"}),
		DownloadsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "vidrelay",
			Subsystem: "downloads",
			Name:      "in_flight",
			Help:      "Number of downloads currently in flight",
		}),
		DownloadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vidrelay",
			Subsystem: "downloads",
			Name:      "duration_seconds",
			Help:      "Histogram of download duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"kind"}),

		SessionsConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "vidrelay",
			Subsystem: "push",
			Name:      "sessions_connected",
			Help:      "Number of connected push-channel sessions",
		}),
		EventsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vidrelay",
			Subsystem: "push",
			Name:      "events_sent_total",
			Help:      "Total number of progress events delivered",
		}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vidrelay",
			Subsystem: "push",
			Name:      "events_dropped_total",
			Help:      "Total number of progress events dropped",
		}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vidrelay",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vidrelay",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// Handler returns the HTTP handler exposing this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// DownloadTimer records a started download and returns a function that
// observes its duration on completion.
func (m *Metrics) DownloadTimer(kind string) func() {
	if m == nil {
		return func() {}
	}

	m.DownloadsStarted.WithLabelValues(kind).Inc()
	m.DownloadsInFlight.Inc()

	start := time.Now()

	return func() {
		m.DownloadsInFlight.Dec()
		m.DownloadDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

// RecordDownloadCompleted records a successful download.
func (m *Metrics) RecordDownloadCompleted(kind string) {
	if m == nil {
		return
	}

	m.DownloadsCompleted.WithLabelValues(kind).Inc()
}

// RecordDownloadFailed records a failed download.
func (m *Metrics) RecordDownloadFailed(kind, reason string) {
	if m == nil {
		return
	}

	m.DownloadsFailed.WithLabelValues(kind, reason).Inc()
}

// SetSessionsConnected sets the connected push-channel session count.
func (m *Metrics) SetSessionsConnected(count int) {
	if m == nil {
		return
	}

	m.SessionsConnected.Set(float64(count))
}

// RecordEventSent counts one delivered progress event.
func (m *Metrics) RecordEventSent() {
	if m == nil {
		return
	}

	m.EventsSent.Inc()
}

// RecordEventDropped counts one dropped progress event.
func (m *Metrics) RecordEventDropped() {
	if m == nil {
		return
	}

	m.EventsDropped.Inc()
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
