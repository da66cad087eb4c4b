// Package consensus decides whether every active member of a group has
// approved an item.
package consensus

import (
	"context"
	"fmt"

	"cinematch/internal/membership"

	id "cinematch/pkg/domain"
)

// Evaluator evaluates the consensus predicate against the group's membership
// as of now. Membership is fetched fresh on every call and never cached: a
// member who joins after votes were cast blocks consensus until they approve,
// and a member who leaves stops counting immediately.
type Evaluator struct {
	members membership.Service
}

func New(members membership.Service) *Evaluator {
	return &Evaluator{members: members}
}

// IsConsensus reports whether every currently active member of the group
// appears in the approve-voter set for the item. A group with zero active
// members never reaches consensus.
func (e *Evaluator) IsConsensus(ctx context.Context, group id.GroupID, item id.ItemID, approvers []id.MemberID) (bool, error) {
	active, err := e.members.ActiveMembers(ctx, group)
	if err != nil {
		return false, fmt.Errorf("fetch active members for %s: %w", group, err)
	}
	if len(active) == 0 {
		return false, nil
	}

	approverSet := make(map[id.MemberID]struct{}, len(approvers))
	for _, member := range approvers {
		approverSet[member] = struct{}{}
	}

	for member := range active {
		if _, ok := approverSet[member]; !ok {
			return false, nil
		}
	}
	return true, nil
}
