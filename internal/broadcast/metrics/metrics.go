// Package metrics exposes Prometheus instrumentation for event fan-out.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsDelivered  prometheus.Counter
	DeliveryFailures prometheus.Counter
}

func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		EventsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "cinematch_broadcast_events_delivered_total",
			Help: "Events successfully handed to a subscriber's send queue.",
		}),
		DeliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "cinematch_broadcast_delivery_failures_total",
			Help: "Deliveries skipped because the subscriber was closed or its queue was full.",
		}),
	}
}
