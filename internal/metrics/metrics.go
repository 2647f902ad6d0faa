// Package metrics collects and exposes Prometheus metrics for the API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	otpSends     *prometheus.CounterVec
	otpVerifies  *prometheus.CounterVec
	purgeDeleted prometheus.Counter
	purgeFailed  prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deejiar_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "deejiar_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		otpSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deejiar_otp_sends_total",
			Help: "OTP send requests by flow and result.",
		}, []string{"flow", "result"}),
		otpVerifies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deejiar_otp_verifications_total",
			Help: "OTP verification attempts by flow and result.",
		}, []string{"flow", "result"}),
		purgeDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deejiar_purged_accounts_total",
			Help: "Accounts removed by the deletion purge sweep.",
		}),
		purgeFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deejiar_purge_failures_total",
			Help: "Per-row failures during the deletion purge sweep.",
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.otpSends,
		m.otpVerifies,
		m.purgeDeleted,
		m.purgeFailed,
	)

	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest counts one finished HTTP request.
func (m *Metrics) RecordRequest(method, route, status string, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordOtpSend counts one OTP send attempt.
func (m *Metrics) RecordOtpSend(flow string, ok bool) {
	m.otpSends.WithLabelValues(flow, resultLabel(ok)).Inc()
}

// RecordOtpVerify counts one OTP verification attempt.
func (m *Metrics) RecordOtpVerify(flow string, ok bool) {
	m.otpVerifies.WithLabelValues(flow, resultLabel(ok)).Inc()
}

// RecordPurge counts the outcome of one purge sweep.
func (m *Metrics) RecordPurge(deleted, failed int) {
	m.purgeDeleted.Add(float64(deleted))
	m.purgeFailed.Add(float64(failed))
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
