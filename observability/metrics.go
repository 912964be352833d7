// Package observability exposes the Prometheus collectors of the messaging core.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "folio_chat"

// Metrics groups every collector. A nil *Metrics is valid and records nothing,
// which keeps unit tests free of registry plumbing.
type Metrics struct {
	connections     prometheus.Gauge
	localUsers      prometheus.Gauge
	registrations   *prometheus.CounterVec
	disconnects     *prometheus.CounterVec
	messagesSent    prometheus.Counter
	sendFailures    *prometheus.CounterVec
	deliveries      *prometheus.CounterVec
	newConversation prometheus.Counter
	processRSS      prometheus.Gauge
	processCPU      prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections",
			Help: "Live transport connections on this instance.",
		}),
		localUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "local_users",
			Help: "Users with at least one registered connection on this instance.",
		}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "registrations_total",
			Help: "Register intents by outcome.",
		}, []string{"outcome"}),
		disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "disconnects_total",
			Help: "Disconnect cleanups by outcome.",
		}, []string{"outcome"}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_sent_total",
			Help: "Messages persisted and fanned out.",
		}),
		sendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "send_failures_total",
			Help: "Rejected or failed sends by wire code.",
		}, []string{"code"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "deliveries_total",
			Help: "Events emitted to connections by event name and outcome.",
		}, []string{"event", "outcome"}),
		newConversation: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "conversations_started_total",
			Help: "First messages of a conversation.",
		}),
		processRSS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_rss_bytes",
			Help: "Resident memory sampled by the heartbeat worker.",
		}),
		processCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_cpu_percent",
			Help: "CPU usage sampled by the heartbeat worker.",
		}),
	}
	reg.MustRegister(m.connections, m.localUsers, m.registrations, m.disconnects, m.messagesSent,
		m.sendFailures, m.deliveries, m.newConversation, m.processRSS, m.processCPU)
	return m
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) SetLocalUsers(n int) {
	if m != nil {
		m.localUsers.Set(float64(n))
	}
}

func (m *Metrics) Registration(outcome string) {
	if m != nil {
		m.registrations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Disconnect(outcome string) {
	if m != nil {
		m.disconnects.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) MessageSent(newConversation bool) {
	if m == nil {
		return
	}
	m.messagesSent.Inc()
	if newConversation {
		m.newConversation.Inc()
	}
}

func (m *Metrics) SendFailed(code string) {
	if m != nil {
		m.sendFailures.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) Delivery(eventName, outcome string) {
	if m != nil {
		m.deliveries.WithLabelValues(eventName, outcome).Inc()
	}
}

func (m *Metrics) ProcessStats(rss uint64, cpu float64) {
	if m == nil {
		return
	}
	m.processRSS.Set(float64(rss))
	m.processCPU.Set(cpu)
}
