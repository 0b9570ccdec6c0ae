// Package metrics provides Prometheus metrics for semdiff
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmcder000/semantic-diff/internal/quote"
)

// Metrics holds all Prometheus metrics for semdiff. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Locate metrics
	LocateTotal      *prometheus.CounterVec
	LocateDuration   *prometheus.HistogramVec
	LocateConfidence prometheus.Histogram
	GuardSkipsTotal  prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Prepared document cache
	CacheLookupsTotal *prometheus.CounterVec
	CacheEntries      prometheus.Gauge

	ServerStartTime time.Time
}

// New creates all metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry:        reg,
		ServerStartTime: time.Now(),
	}

	m.LocateTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semdiff_locate_total",
			Help: "Total number of quotes resolved, by winning method",
		},
		[]string{"method"},
	)

	m.LocateDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semdiff_locate_duration_seconds",
			Help:    "Duration of single quote resolution in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method"},
	)

	m.LocateConfidence = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "semdiff_locate_confidence",
			Help:    "Confidence of located quotes",
			Buckets: []float64{.1, .25, .5, .75, .9, .95, .99, 1},
		},
	)

	m.GuardSkipsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "semdiff_approximate_guard_skips_total",
			Help: "Approximate tier attempts skipped because an input exceeded its size guard",
		},
	)

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semdiff_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semdiff_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	m.HTTPRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "semdiff_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	m.CacheLookupsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semdiff_document_cache_lookups_total",
			Help: "Prepared document cache lookups, by result",
		},
		[]string{"result"},
	)

	m.CacheEntries = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "semdiff_document_cache_entries",
			Help: "Number of prepared documents currently cached",
		},
	)

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "semdiff_uptime_seconds",
			Help: "Seconds since the metrics were created",
		},
		func() float64 { return time.Since(m.ServerStartTime).Seconds() },
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordLocate records one resolution. Failed resolutions count under
// the no_match method.
func (m *Metrics) RecordLocate(res quote.MatchResult, attempts []quote.Attempt, duration time.Duration) {
	if m == nil {
		return
	}
	method := string(res.Method)
	if method == "" {
		method = string(quote.MethodNone)
	}
	m.LocateTotal.WithLabelValues(method).Inc()
	m.LocateDuration.WithLabelValues(method).Observe(duration.Seconds())
	if res.Method != quote.MethodNone && res.Method != "" {
		m.LocateConfidence.Observe(res.Confidence)
	}
	for _, a := range attempts {
		if a.Skipped {
			m.GuardSkipsTotal.Inc()
		}
	}
}

// RecordHTTPRequest records a completed HTTP request
func (m *Metrics) RecordHTTPRequest(path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns its decrement
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.HTTPRequestsInFlight.Inc()
	return m.HTTPRequestsInFlight.Dec
}

// RecordCacheLookup records a cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}
