// Package metrics exposes Prometheus instrumentation for match detection.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	MatchesCreated prometheus.Counter
	ClaimConflicts prometheus.Counter
}

func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		MatchesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "cinematch_matches_created_total",
			Help: "Matches claimed and broadcast.",
		}),
		ClaimConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "cinematch_match_claim_conflicts_total",
			Help: "Claim attempts that lost the race to an earlier claim.",
		}),
	}
}
