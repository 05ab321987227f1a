// Package metrics exposes room server counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use through a nil pointer, in which case every call is
// a no-op.
type Metrics struct {
	reg prometheus.Gatherer

	connections      prometheus.Gauge
	rooms            prometheus.Gauge
	messagesReceived *prometheus.CounterVec
	messagesDropped  *prometheus.CounterVec
	eventsBroadcast  *prometheus.CounterVec
	resyncs          *prometheus.CounterVec
	messageLatency   prometheus.Histogram
}

// New registers the server metrics on reg.
func New(namespace string, reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		reg: reg,
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of open websocket connections",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of live rooms",
		}),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Client frames received, by type",
		}, []string{"type"}),
		messagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Client frames dropped without effect, by reason",
		}, []string{"reason"}),
		eventsBroadcast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_broadcast_total",
			Help:      "Sequenced engine events broadcast, by type",
		}, []string{"type"}),
		resyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resyncs_total",
			Help:      "Resync requests, by outcome (replay or snapshot)",
		}, []string{"outcome"}),
		messageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}

	reg.MustRegister(
		m.connections,
		m.rooms,
		m.messagesReceived,
		m.messagesDropped,
		m.eventsBroadcast,
		m.resyncs,
		m.messageLatency,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) IncConnections() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) DecConnections() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) SetActiveRooms(count int) {
	if m != nil {
		m.rooms.Set(float64(count))
	}
}

func (m *Metrics) IncMessagesReceived(msgType string) {
	if m != nil {
		m.messagesReceived.WithLabelValues(msgType).Inc()
	}
}

func (m *Metrics) IncDropped(reason string) {
	if m != nil {
		m.messagesDropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncEventsBroadcast(eventType string) {
	if m != nil {
		m.eventsBroadcast.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) IncResync(outcome string) {
	if m != nil {
		m.resyncs.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveMessageLatency(d time.Duration) {
	if m != nil {
		m.messageLatency.Observe(d.Seconds())
	}
}
