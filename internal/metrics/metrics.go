// Package metrics collects and exposes Prometheus metrics for the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records login outcomes and HTTP request metrics.
type Collector struct {
	logins          *prometheus.CounterVec
	bridgeWarnings  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	registry        *prometheus.Registry
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookshell_logins_total",
			Help: "Login attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		bridgeWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookshell_bridge_warnings_total",
			Help: "Non-fatal secondary failures during Naver bridge exchanges.",
		}, []string{"op"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bookshell_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}

	registry.MustRegister(c.logins, c.bridgeWarnings, c.requestDuration)
	return c
}

// RecordLogin counts one login attempt.
func (c *Collector) RecordLogin(provider, outcome string) {
	c.logins.WithLabelValues(provider, outcome).Inc()
}

// RecordBridgeWarning counts one swallowed secondary failure.
func (c *Collector) RecordBridgeWarning(op string) {
	c.bridgeWarnings.WithLabelValues(op).Inc()
}

// RecordRequest observes one served request.
func (c *Collector) RecordRequest(route string, status int, duration time.Duration) {
	c.requestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Handler serves the /metrics endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
