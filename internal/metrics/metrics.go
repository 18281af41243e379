// Package metrics exposes engine and HTTP counters for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds a private registry. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	fetches             *prometheus.CounterVec
	layerLoads          *prometheus.CounterVec
	legendBuilds        prometheus.Counter
	redirects           prometheus.Counter
}

// New creates a fresh registry with every metric registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plat_legend",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests served",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "plat_legend",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plat_legend",
		Name:      "fetches_total",
		Help:      "Resource fetches by kind (geometry, table, template) and result",
	}, []string{"kind", "result"})

	layerLoads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plat_legend",
		Name:      "layer_loads_total",
		Help:      "Layer geometry loads by result",
	}, []string{"result"})

	legendBuilds := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "plat_legend",
		Name:      "legend_builds_total",
		Help:      "Legends built or rebuilt",
	})

	redirects := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "plat_legend",
		Name:      "redirects_total",
		Help:      "Style property redirections applied",
	})

	registry.MustRegister(httpRequests, httpRequestDuration, fetches, layerLoads, legendBuilds, redirects)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		fetches:             fetches,
		layerLoads:          layerLoads,
		legendBuilds:        legendBuilds,
		redirects:           redirects,
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// Fetch counts one completed resource fetch.
func (m *Metrics) Fetch(kind string, err error) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(kind, result(err)).Inc()
}

// LayerLoad counts one finished layer load.
func (m *Metrics) LayerLoad(err error) {
	if m == nil {
		return
	}
	m.layerLoads.WithLabelValues(result(err)).Inc()
}

// LegendBuilt counts a legend build.
func (m *Metrics) LegendBuilt() {
	if m == nil {
		return
	}
	m.legendBuilds.Inc()
}

// Redirected counts a property redirection.
func (m *Metrics) Redirected() {
	if m == nil {
		return
	}
	m.redirects.Inc()
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
