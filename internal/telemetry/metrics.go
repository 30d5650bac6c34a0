// Package telemetry holds the Prometheus metrics of the portal.
//
// All metrics are registered against the default registry and exposed on
// GET /metrics by Handler.
//
// HTTP metrics are labelled by route template (for example /sessions/{id})
// rather than the raw URL so numeric identifiers do not inflate label
// cardinality.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Email dispatch outcomes recorded in EmailsTotal.
const (
	EmailSent    = "sent"
	EmailFailed  = "failed"
	EmailSkipped = "skipped"
)

var (
	// HTTPRequestsTotal counts requests by method, route template and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "council_http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and route template.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "council_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)

// EmailsTotal counts convocation emails by result. A stalled "sent" series
// while convocations are created usually means the SMTP relay is down or unconfigured.
var EmailsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "council_emails_total",
		Help: "Total number of emails handed to the SMTP relay, by result.",
	},
	[]string{"result"},
)

// RecordEmail increments EmailsTotal for result.
func RecordEmail(result string) {
	EmailsTotal.WithLabelValues(result).Inc()
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
