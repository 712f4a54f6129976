// Package server exposes Prometheus metrics describing connection and
// message flow through the relay.
package server

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "castrelay"

// Metrics holds the Prometheus instruments for the relay.
type Metrics struct {
	ActiveConnections prometheus.Gauge
	MessagesPublished prometheus.Counter
	MessagesDelivered prometheus.Counter
	WriteFailures     prometheus.Counter
}

// NewMetrics creates and registers the relay metrics on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of active WebSocket connections.",
		}),
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "hub",
			Name:      "messages_published_total",
			Help:      "Total number of messages accepted into the broadcast queue.",
		}),
		MessagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "hub",
			Name:      "messages_delivered_total",
			Help:      "Total number of successful per-client message deliveries.",
		}),
		WriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "hub",
			Name:      "write_failures_total",
			Help:      "Total number of failed client writes during broadcast.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.MessagesPublished, m.MessagesDelivered, m.WriteFailures)
	return m
}
