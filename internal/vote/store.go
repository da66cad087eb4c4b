package vote

import (
	"context"

	id "cinematch/pkg/domain"
)

// Store persists votes. Record is the only write the core performs on the
// ledger: an atomic last-write-wins upsert keyed (group, item, member) that
// returns the full post-write approve-voter set for the item, which is the
// input to consensus evaluation. Writers to different members must not block
// each other; same-key writers serialize inside the store.
type Store interface {
	Record(ctx context.Context, v Vote) ([]id.MemberID, error)
}
