// Package metrics holds the Prometheus collectors shared by services and
// HTTP middleware. All recording methods are safe on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SignalsAdded    *prometheus.CounterVec
	StorageFailures *prometheus.CounterVec
	Reports         *prometheus.CounterVec
	ReportErrors    *prometheus.CounterVec
	ReportLatency   prometheus.Histogram
	HTTPRequests    *prometheus.CounterVec
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in
// tests to avoid duplicate registration on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SignalsAdded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "concord_signals_added_total",
			Help: "Knowledge signals added, by source",
		}, []string{"source"}),

		StorageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "concord_storage_failures_total",
			Help: "Swallowed key-value store failures, by operation",
		}, []string{"op"}),

		Reports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "concord_reports_total",
			Help: "Multi-model reports built, by consensus label",
		}, []string{"consensus"}),

		ReportErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "concord_report_errors_total",
			Help: "Report builds aborted by a collaborator failure, by stage",
		}, []string{"stage"}),

		// generator calls dominate; buckets go up to two minutes
		ReportLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "concord_report_duration_seconds",
			Help:    "Report build latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "concord_http_requests_total",
			Help: "HTTP requests, by method and status class",
		}, []string{"method", "status"}),
	}
}

func (m *Metrics) SignalAdded(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SignalsAdded.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) StorageFailure(op string) {
	if m == nil {
		return
	}
	m.StorageFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) ReportBuilt(consensus string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Reports.WithLabelValues(consensus).Inc()
	m.ReportLatency.Observe(elapsed.Seconds())
}

func (m *Metrics) ReportFailed(stage string) {
	if m == nil {
		return
	}
	m.ReportErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) HTTPRequest(method, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, status).Inc()
}
