// Package metrics exposes delivery and session counters for Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the SDK collectors.
type Metrics struct {
	registry *prometheus.Registry

	DeliveryAttempts   *prometheus.CounterVec
	DeliveryDuration   *prometheus.HistogramVec
	PackagesQueued     *prometheus.CounterVec
	PackagesDropped    *prometheus.CounterVec
	QueueLength        prometheus.Gauge
	SessionTransitions *prometheus.CounterVec
	PersistErrors      *prometheus.CounterVec
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		DeliveryAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adjust_delivery_attempts_total",
				Help: "Total number of package delivery attempts",
			},
			[]string{"kind", "outcome"}, // outcome: success|permanent_failure|retryable_failure
		),

		DeliveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adjust_delivery_duration_seconds",
				Help:    "Package delivery latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),

		PackagesQueued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adjust_packages_queued_total",
				Help: "Total number of packages added to the queue",
			},
			[]string{"kind"},
		),

		PackagesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adjust_packages_removed_total",
				Help: "Total number of packages removed from the queue",
			},
			[]string{"kind", "outcome"},
		),

		QueueLength: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "adjust_queue_length",
				Help: "Packages waiting for delivery",
			},
		),

		SessionTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adjust_session_transitions_total",
				Help: "Session state machine transitions",
			},
			[]string{"transition"}, // first_session|session|subsession|time_travel
		),

		PersistErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adjust_persist_errors_total",
				Help: "Failed reads and writes of persisted slots",
			},
			[]string{"slot", "op"},
		),
	}

	m.registry.MustRegister(
		m.DeliveryAttempts,
		m.DeliveryDuration,
		m.PackagesQueued,
		m.PackagesDropped,
		m.QueueLength,
		m.SessionTransitions,
		m.PersistErrors,
	)
	return m
}

// Registry returns the registry holding the SDK collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDelivery records one finished delivery attempt.
func (m *Metrics) ObserveDelivery(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.DeliveryAttempts.WithLabelValues(kind, outcome).Inc()
	m.DeliveryDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// PackageQueued records an enqueue and the resulting queue length.
func (m *Metrics) PackageQueued(kind string, length int) {
	if m == nil {
		return
	}
	m.PackagesQueued.WithLabelValues(kind).Inc()
	m.QueueLength.Set(float64(length))
}

// PackageRemoved records a dequeue and the resulting queue length.
func (m *Metrics) PackageRemoved(kind, outcome string, length int) {
	if m == nil {
		return
	}
	m.PackagesDropped.WithLabelValues(kind, outcome).Inc()
	m.QueueLength.Set(float64(length))
}

// QueueLoaded sets the queue length after reading it from storage.
func (m *Metrics) QueueLoaded(length int) {
	if m == nil {
		return
	}
	m.QueueLength.Set(float64(length))
}

// SessionTransition counts a state machine transition.
func (m *Metrics) SessionTransition(transition string) {
	if m == nil {
		return
	}
	m.SessionTransitions.WithLabelValues(transition).Inc()
}

// PersistError counts a failed slot read or write.
func (m *Metrics) PersistError(slot, op string) {
	if m == nil {
		return
	}
	m.PersistErrors.WithLabelValues(slot, op).Inc()
}
