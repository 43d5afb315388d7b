// Package telemetry adapts search events to Prometheus metrics and zap logs.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"nations.ai/internal/protocol"
)

const namespace = "nations"

// knownEvents bounds the type label.
var knownEvents = map[string]bool{
	protocol.EventStart:     true,
	protocol.EventNewBest:   true,
	protocol.EventExpanded:  true,
	protocol.EventPruned:    true,
	protocol.EventCompleted: true,
	protocol.EventFinished:  true,
}

var knownReasons = map[string]bool{
	protocol.PruneUnaffordable: true,
	protocol.PruneDuplicate:    true,
	protocol.PruneRepeat:       true,
	protocol.PruneFloor:        true,
	protocol.PruneBeam:         true,
}

func sanitize(known map[string]bool, v string) string {
	if known[v] {
		return v
	}
	return "unknown"
}

// Metrics is a search observer that maintains Prometheus collectors.
type Metrics struct {
	events    *prometheus.CounterVec
	pruned    *prometheus.CounterVec
	completed prometheus.Counter
	frontier  prometheus.Gauge
	depth     prometheus.Gauge
	bestEU    prometheus.Gauge
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "events_total",
			Help:      "Search events by type.",
		}, []string{"type"}),
		pruned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "pruned_total",
			Help:      "Pruned candidates by reason; beam trims count every dropped entry.",
		}, []string{"reason"}),
		completed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "completed_total",
			Help:      "Schedules emitted by the top-K scheduler.",
		}),
		frontier: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "frontier_size",
			Help:      "Frontier size after the last expansion.",
		}),
		depth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "depth",
			Help:      "Schedule length of the last expanded node.",
		}),
		bestEU: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "best_eu",
			Help:      "Best expected utility seen so far.",
		}),
	}
}

func (m *Metrics) OnEvent(ev protocol.SearchEvent) {
	m.events.WithLabelValues(sanitize(knownEvents, ev.Type)).Inc()

	switch ev.Type {
	case protocol.EventStart:
		m.bestEU.Set(ev.EU)
		m.frontier.Set(float64(ev.Frontier))
	case protocol.EventNewBest:
		m.bestEU.Set(ev.EU)
	case protocol.EventExpanded:
		m.depth.Set(float64(ev.Depth))
		m.frontier.Set(float64(ev.Frontier))
	case protocol.EventPruned:
		n := ev.Count
		if n <= 0 {
			n = 1
		}
		m.pruned.WithLabelValues(sanitize(knownReasons, ev.Reason)).Add(float64(n))
	case protocol.EventCompleted:
		m.completed.Inc()
	}
}
