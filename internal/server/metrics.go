package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is what the admin listener exposes about a running server.
type Metrics struct {
	Connections    prometheus.Gauge
	Tables         prometheus.Gauge
	Packets        *prometheus.CounterVec
	Actions        *prometheus.CounterVec
	HandsCompleted prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "cardio",
			Name:      "connections",
			Help:      "Open client connections.",
		}),
		Tables: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "cardio",
			Name:      "tables",
			Help:      "Live tables.",
		}),
		Packets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cardio",
			Name:      "packets_total",
			Help:      "Inbound packets by type.",
		}, []string{"type"}),
		Actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cardio",
			Name:      "actions_total",
			Help:      "Applied betting actions by type, bot moves included.",
		}, []string{"action"}),
		HandsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cardio",
			Name:      "hands_completed_total",
			Help:      "Hands played to completion.",
		}),
	}
}
