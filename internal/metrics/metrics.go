// Package metrics exposes Prometheus instruments for the intake service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes recorded by Submissions.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeTooLarge = "too_large"
	OutcomeFailed   = "failed"
)

// Metrics holds every instrument, registered on its own registry so tests
// and multiple servers in one process never collide.
type Metrics struct {
	registry *prometheus.Registry

	Submissions      *prometheus.CounterVec
	ArchiveBytes     prometheus.Histogram
	AttachmentBytes  prometheus.Histogram
	DispatchDuration *prometheus.HistogramVec

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all instruments.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tripfarm_submissions_total",
			Help: "Form submissions by outcome and form type",
		}, []string{"outcome", "form_type"}),
		ArchiveBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripfarm_archive_size_bytes",
			Help:    "Size of generated ZIP bundles",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 14), // 1KB to ~16MB
		}),
		AttachmentBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripfarm_attachment_size_bytes",
			Help:    "Size of received audio attachments",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10), // 16KB to ~8MB
		}),
		DispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tripfarm_mail_dispatch_duration_seconds",
			Help:    "Time spent handing bundles to the mail transport",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
		}, []string{"result"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tripfarm_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tripfarm_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSubmission counts a submission outcome.
func (m *Metrics) ObserveSubmission(outcome, formType string) {
	if m == nil {
		return
	}
	if formType == "" {
		formType = "unknown"
	}
	m.Submissions.WithLabelValues(outcome, formType).Inc()
}
