// Package metrics owns the Prometheus collectors for the ledger engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "courtledger"

type Metrics struct {
	registry *prometheus.Registry

	bookingsCreated    prometheus.Counter
	bookingConflicts   prometheus.Counter
	bookingTransitions *prometheus.CounterVec
	paymentsRecorded   *prometheus.CounterVec
	refunds            prometheus.Counter
	splitOutcomes      *prometheus.CounterVec
	webhookOutcomes    *prometheus.CounterVec
	gatewayDuration    *prometheus.HistogramVec
	httpRequests       *prometheus.CounterVec
}

// New registers every collector on a fresh registry along with the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		bookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Bookings created.",
		}),
		bookingConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts rejected because the slot was taken.",
		}),
		bookingTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Booking status transitions by target status.",
		}, []string{"status"}),
		paymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Completed payments written to the ledger by method.",
		}, []string{"method"}),
		refunds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunds_total",
			Help:      "Refunded payments.",
		}),
		splitOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "split_payments_total",
			Help:      "Split payment plans reaching a final state.",
		}, []string{"status"}),
		webhookOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Gateway notifications by outcome.",
		}, []string{"outcome"}),
		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Latency of payment gateway calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.bookingsCreated,
		m.bookingConflicts,
		m.bookingTransitions,
		m.paymentsRecorded,
		m.refunds,
		m.splitOutcomes,
		m.webhookOutcomes,
		m.gatewayDuration,
		m.httpRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// InstrumentHandler counts requests served by next.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return promhttp.InstrumentHandlerCounter(m.httpRequests, next)
}

func (m *Metrics) BookingCreated() {
	if m != nil {
		m.bookingsCreated.Inc()
	}
}

func (m *Metrics) BookingConflict() {
	if m != nil {
		m.bookingConflicts.Inc()
	}
}

func (m *Metrics) BookingTransition(status string) {
	if m != nil {
		m.bookingTransitions.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) PaymentRecorded(method string) {
	if m != nil {
		m.paymentsRecorded.WithLabelValues(method).Inc()
	}
}

func (m *Metrics) Refunded() {
	if m != nil {
		m.refunds.Inc()
	}
}

func (m *Metrics) SplitOutcome(status string) {
	if m != nil {
		m.splitOutcomes.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) WebhookOutcome(outcome string) {
	if m != nil {
		m.webhookOutcomes.WithLabelValues(outcome).Inc()
	}
}

// ObserveGateway records the latency of one gateway call started at start.
func (m *Metrics) ObserveGateway(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.gatewayDuration.WithLabelValues(operation, result).Observe(time.Since(start).Seconds())
}
