package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the explanation server.
//
// Metrics:
//   - enveye_explain_requests_total{outcome} - explanation requests by outcome
//   - enveye_explain_duration_seconds - time spent in the explainer
//   - enveye_explain_diff_entries - number of diff entries per request
type Metrics struct {
	ExplainRequestsTotal *prometheus.CounterVec
	ExplainDuration      prometheus.Histogram
	DiffEntries          prometheus.Histogram
}

// Request outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeBadRequest = "bad_request"
	OutcomeError      = "error"
)

// NewMetrics creates the server metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ExplainRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enveye_explain_requests_total",
				Help: "Total number of explanation requests",
			},
			[]string{"outcome"},
		),
		ExplainDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "enveye_explain_duration_seconds",
				Help:    "Time spent generating an explanation",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
		),
		DiffEntries: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "enveye_explain_diff_entries",
				Help:    "Number of diff entries per explanation request",
				Buckets: prometheus.ExponentialBuckets(1, 4, 6),
			},
		),
	}
}
