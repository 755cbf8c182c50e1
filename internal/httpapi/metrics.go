package httpapi

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus instruments on a private registry
// so tests can create servers without collector collisions.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	bytesDownloaded prometheus.Counter
	bytesUploaded   prometheus.Counter
}

// NewMetrics registers the gateway's instruments on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sharepoint_gateway_requests_total",
			Help: "HTTP requests handled, by method, path, and status.",
		}, []string{"method", "path", "status"}),
		bytesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharepoint_gateway_download_bytes_total",
			Help: "Bytes streamed to download callers.",
		}),
		bytesUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharepoint_gateway_upload_bytes_total",
			Help: "Bytes accepted from upload callers.",
		}),
	}

	registry.MustRegister(m.requestsTotal, m.bytesDownloaded, m.bytesUploaded)

	return m
}

// ObserveRequest counts one handled request.
func (m *Metrics) ObserveRequest(method, path string, status int) {
	m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// AddDownloadedBytes records bytes streamed out to a caller.
func (m *Metrics) AddDownloadedBytes(n int64) {
	m.bytesDownloaded.Add(float64(n))
}

// AddUploadedBytes records bytes received from a caller.
func (m *Metrics) AddUploadedBytes(n int64) {
	m.bytesUploaded.Add(float64(n))
}

// Handler serves the registry for Prometheus scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
