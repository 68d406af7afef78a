package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts how the store reconciles the change feed.
type Metrics struct {
	Events    *prometheus.CounterVec // by type and outcome
	Refreshes *prometheus.CounterVec // by result
	Projects  prometheus.Gauge
}

// NewMetrics registers the store collectors with reg.
// Pass prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wisp",
			Subsystem: "store",
			Name:      "change_events_total",
			Help:      "Change feed events applied to the project store, by type and outcome.",
		}, []string{"type", "outcome"}),
		Refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wisp",
			Subsystem: "store",
			Name:      "refreshes_total",
			Help:      "Full project list refreshes, by result (ok, error, superseded).",
		}, []string{"result"}),
		Projects: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "wisp",
			Subsystem: "store",
			Name:      "projects",
			Help:      "Number of projects currently held by the store.",
		}),
	}
}

func (m *Metrics) observeEvent(t EventType, o Outcome) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(string(t), o.String()).Inc()
}

func (m *Metrics) observeRefresh(result string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) setProjects(n int) {
	if m == nil {
		return
	}
	m.Projects.Set(float64(n))
}
