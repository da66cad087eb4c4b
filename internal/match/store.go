package match

import (
	"context"

	id "cinematch/pkg/domain"
)

// Registry persists matches. TryClaim is an atomic conditional insert keyed
// (group, item): exactly one of any number of concurrent claimants observes
// created=true, and everyone receives the winning row. There is no separate
// existence check anywhere; the insert itself is the race arbiter.
type Registry interface {
	TryClaim(ctx context.Context, m Match) (created bool, result Match, err error)
	ListByGroup(ctx context.Context, group id.GroupID) ([]Match, error)
}
