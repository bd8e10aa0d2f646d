package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the request-level Prometheus metrics for the application.
// Package-level operational metrics (store, retries, dispatch) register
// themselves where they are used.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	SessionsActive  prometheus.Gauge
	BotsSuppressed  prometheus.Counter
}

// New creates and registers all request-level Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consentd_http_request_duration_ms",
			Help:    "HTTP request latency in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"method", "path", "status"}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "consentd_sessions_active",
			Help: "Visitor sessions currently held in the registry",
		}),
		BotsSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentd_bots_suppressed_total",
			Help: "Requests answered with the crawler short-circuit",
		}),
	}
}
