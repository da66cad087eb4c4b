// Package vote implements the vote ledger: the durable record of every
// member's swipe decision, and the submission flow that feeds consensus
// detection.
package vote

import (
	"time"

	id "cinematch/pkg/domain"

	dErrors "cinematch/pkg/domain-errors"
)

// Decision is a member's stance on an item.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision validates the wire form of a decision.
func ParseDecision(raw string) (Decision, error) {
	switch Decision(raw) {
	case DecisionApprove, DecisionReject:
		return Decision(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "decision must be approve or reject")
	}
}

// Vote is one member's current decision on one item in one group. The ledger
// holds at most one row per (group, item, member); a later vote overwrites an
// earlier one.
type Vote struct {
	GroupID   id.GroupID
	ItemID    id.ItemID
	MemberID  id.MemberID
	Decision  Decision
	DecidedAt time.Time
}
