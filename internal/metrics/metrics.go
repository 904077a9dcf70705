// Package metrics exposes prometheus collectors for the realtime layer and
// the event log.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "livetrigger"

// Registry owns a private prometheus registry and the collectors on it.
type Registry struct {
	reg      *prometheus.Registry
	Realtime *Realtime
	Events   *Events
}

// New registers every collector on a fresh registry.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		reg:      reg,
		Realtime: newRealtime(),
		Events:   newEvents(),
	}
	r.Realtime.register(reg)
	r.Events.register(reg)
	return r
}

// Handler serves the registry in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Realtime tracks the transport manager. A nil *Realtime is a no-op.
type Realtime struct {
	reconnectAttempts prometheus.Counter
	fallbacks         prometheus.Counter
	state             *prometheus.GaugeVec
	messages          *prometheus.CounterVec
	dropped           prometheus.Counter
}

func newRealtime() *Realtime {
	return &Realtime{
		reconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "reconnect_attempts_total",
			Help:      "Total number of failed connection attempts",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "fallbacks_total",
			Help:      "Times the manager dropped to the fallback tier",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "state",
			Help:      "1 for the current transport state, 0 otherwise",
		}, []string{"state"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "messages_total",
			Help:      "Inbound messages by wire type",
		}, []string{"type"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "messages_dropped_total",
			Help:      "Inbound messages ignored as unknown or malformed",
		}),
	}
}

func (m *Realtime) register(reg prometheus.Registerer) {
	reg.MustRegister(m.reconnectAttempts, m.fallbacks, m.state, m.messages, m.dropped)
}

// ReconnectAttempt counts a failed attempt.
func (m *Realtime) ReconnectAttempt() {
	if m == nil {
		return
	}
	m.reconnectAttempts.Inc()
}

// Fallback counts a switch to the fallback tier.
func (m *Realtime) Fallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

// StateChanged flips the state gauge.
func (m *Realtime) StateChanged(from, to string) {
	if m == nil {
		return
	}
	if from != "" {
		m.state.WithLabelValues(from).Set(0)
	}
	m.state.WithLabelValues(to).Set(1)
}

// MessageReceived counts an inbound frame.
func (m *Realtime) MessageReceived(typ string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(typ).Inc()
}

// MessageDropped counts an ignored frame.
func (m *Realtime) MessageDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

// Events tracks the event log. A nil *Events is a no-op.
type Events struct {
	recorded *prometheus.CounterVec
	evicted  prometheus.Counter
}

func newEvents() *Events {
	return &Events{
		recorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "recorded_total",
			Help:      "Events recorded by kind",
		}, []string{"kind"}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "evicted_total",
			Help:      "Events evicted from the bounded log",
		}),
	}
}

func (m *Events) register(reg prometheus.Registerer) {
	reg.MustRegister(m.recorded, m.evicted)
}

// EventRecorded counts a recorded event.
func (m *Events) EventRecorded(kind string) {
	if m == nil {
		return
	}
	m.recorded.WithLabelValues(kind).Inc()
}

// EventEvicted counts an eviction.
func (m *Events) EventEvicted() {
	if m == nil {
		return
	}
	m.evicted.Inc()
}
