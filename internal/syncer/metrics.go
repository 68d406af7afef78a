package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the change feed connection.
type Metrics struct {
	Reconnects prometheus.Counter
	Connected  prometheus.Gauge
}

// NewMetrics registers the syncer collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: "wisp",
			Subsystem: "realtime",
			Name:      "disconnects_total",
			Help:      "Times the change feed dropped and had to reconnect.",
		}),
		Connected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "wisp",
			Subsystem: "realtime",
			Name:      "subscribed",
			Help:      "1 while the change feed is subscribed.",
		}),
	}
}

func (m *Metrics) reconnect() {
	if m == nil {
		return
	}
	m.Reconnects.Inc()
}

func (m *Metrics) setConnected(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.Connected.Set(1)
		return
	}
	m.Connected.Set(0)
}
