// Package metrics exposes Prometheus instrumentation for live sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ActiveSubscriptions prometheus.Gauge
	SessionsClosed      *prometheus.CounterVec
}

func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		ActiveSubscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cinematch_active_subscriptions",
			Help: "Live WebSocket subscriptions across all groups.",
		}),
		SessionsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cinematch_sessions_closed_total",
			Help: "Sessions closed, by reason.",
		}, []string{"reason"}),
	}
}
