// Package metrics exposes Prometheus instrumentation for the delivery
// engine. All collectors live on a private registry so several engines
// can coexist in one process (and in tests).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Connection gauge values.
const (
	ConnectionUnknown     = -1
	ConnectionUnavailable = 0
	ConnectionConnected   = 1
)

// Metrics holds the engine collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	Deliveries       *prometheus.CounterVec
	DeliveryDuration prometheus.Histogram
	Retries          *prometheus.CounterVec
	Probes           *prometheus.CounterVec
	HistoryLoads     *prometheus.CounterVec
	SessionEvents    *prometheus.CounterVec
	Connection       prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		// Delivery metrics
		Deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lxassist_deliveries_total",
				Help: "Total question submissions by outcome",
			},
			[]string{"outcome"}, // "delivered", "timeout", "network", "http", "parse", "session_invalid"
		),
		DeliveryDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lxassist_delivery_duration_seconds",
				Help:    "Ask round-trip duration",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		Retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lxassist_retries_total",
				Help: "Total retries of errored entries by outcome",
			},
			[]string{"outcome"},
		),

		// Connectivity metrics
		Probes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lxassist_health_probes_total",
				Help: "Total health probes by result",
			},
			[]string{"result"},
		),
		Connection: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "lxassist_connection_state",
				Help: "Believed backend reachability (1 connected, 0 unavailable, -1 unknown)",
			},
		),

		// Session metrics
		HistoryLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lxassist_history_loads_total",
				Help: "Total history loads by source",
			},
			[]string{"source"}, // "server" or "greeting"
		),
		SessionEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lxassist_session_events_total",
				Help: "Total session terminations by reason",
			},
			[]string{"reason"}, // "logout" or "invalidated"
		),
	}
	m.Connection.Set(ConnectionUnknown)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveDelivery(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(outcome).Inc()
	m.DeliveryDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRetry(outcome string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveProbe(result string) {
	if m == nil {
		return
	}
	m.Probes.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHistoryLoad(source string) {
	if m == nil {
		return
	}
	m.HistoryLoads.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveSessionEnd(reason string) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetConnection(v float64) {
	if m == nil {
		return
	}
	m.Connection.Set(v)
}
