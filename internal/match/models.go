// Package match records group consensus outcomes and announces them. A match
// is claimed exactly once per (group, item): the registry's conditional
// insert decides the winner when concurrent votes race to the same consensus.
package match

import (
	"time"

	"cinematch/internal/metadata"

	id "cinematch/pkg/domain"
)

// Match is a recorded consensus outcome.
type Match struct {
	ID        id.MatchID
	GroupID   id.GroupID
	ItemID    id.ItemID
	ClaimedBy id.MemberID
	CreatedAt time.Time
}

// Outcome describes what happened when a consensus was handed to the
// detector. Created is false when another writer already claimed the match;
// the caller then treats the vote as ordinary (the winner's broadcast covers
// everyone).
type Outcome struct {
	Created    bool
	Match      Match
	Enrichment metadata.Enrichment
	Recipients int
}
