package infra

import (
	"net/http"

	"mql_bridge/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the bridge's Prometheus collectors on a private registry, so
// several bridges (and tests) can coexist in one process.
// All methods are safe on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	pollCycles  *prometheus.CounterVec
	pollSkipped *prometheus.CounterVec
	events      *prometheus.CounterVec
	malformed   *prometheus.CounterVec
	commands    *prometheus.CounterVec
	slotRetries prometheus.Counter
	lifecycle   prometheus.Gauge
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		pollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mql_bridge_poll_cycles_total",
			Help: "Poll cycles run per stream",
		}, []string{"stream"}),

		pollSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mql_bridge_poll_unchanged_total",
			Help: "Poll cycles skipped because the file was empty or unchanged",
		}, []string{"stream"}),

		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mql_bridge_events_total",
			Help: "Events dispatched to handlers per stream",
		}, []string{"stream"}),

		malformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mql_bridge_malformed_total",
			Help: "Parse failures on non-empty stream content",
		}, []string{"stream"}),

		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mql_bridge_commands_total",
			Help: "Command sends by outcome (sent|dropped)",
		}, []string{"status"}),

		slotRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mql_bridge_command_slot_retries_total",
			Help: "Slot scans that found every command slot occupied",
		}),

		lifecycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mql_bridge_lifecycle_state",
			Help: "0=constructed 1=polling_idle 2=active 3=stopped",
		}),
	}

	m.registry.MustRegister(
		m.pollCycles, m.pollSkipped, m.events, m.malformed,
		m.commands, m.slotRetries, m.lifecycle,
	)
	return m
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordPoll(stream domain.Stream) {
	if m == nil {
		return
	}
	m.pollCycles.WithLabelValues(string(stream)).Inc()
}

func (m *Metrics) RecordUnchanged(stream domain.Stream) {
	if m == nil {
		return
	}
	m.pollSkipped.WithLabelValues(string(stream)).Inc()
}

func (m *Metrics) RecordEvents(stream domain.Stream, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.events.WithLabelValues(string(stream)).Add(float64(n))
}

func (m *Metrics) RecordMalformed(stream domain.Stream) {
	if m == nil {
		return
	}
	m.malformed.WithLabelValues(string(stream)).Inc()
}

// RecordCommand counts a send outcome (domain.CommandStatusSent / Dropped).
func (m *Metrics) RecordCommand(status string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordSlotRetry() {
	if m == nil {
		return
	}
	m.slotRetries.Inc()
}

func (m *Metrics) SetLifecycle(state int) {
	if m == nil {
		return
	}
	m.lifecycle.Set(float64(state))
}

// Value reads the current value of a counter or gauge by name and label values
// (in label order). It returns 0 when the series does not exist.
func (m *Metrics) Value(name string, labelValues ...string) float64 {
	if m == nil {
		return 0
	}
	families, err := m.registry.Gather()
	if err != nil {
		return 0
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := metric.GetLabel()
			if len(labels) != len(labelValues) {
				continue
			}
			match := true
			for i, lp := range labels {
				if lp.GetValue() != labelValues[i] {
					match = false
					break
				}
			}
			if !match {
				continue
			}
			if c := metric.GetCounter(); c != nil {
				return c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				return g.GetValue()
			}
		}
	}
	return 0
}
