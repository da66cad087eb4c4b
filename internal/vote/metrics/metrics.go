// Package metrics exposes Prometheus instrumentation for vote submission.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	VotesRecorded *prometheus.CounterVec
	WriteRetries  prometheus.Counter
}

func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		VotesRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cinematch_votes_recorded_total",
			Help: "Votes written to the ledger, by decision.",
		}, []string{"decision"}),
		WriteRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "cinematch_vote_write_retries_total",
			Help: "Ledger writes retried after a transient store failure.",
		}),
	}
}
