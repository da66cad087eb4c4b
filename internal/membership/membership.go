// Package membership exposes the group-membership state the core consumes.
// Group lifecycle (creation, join-by-code, deactivation) belongs to the
// external group-management service; the core only reads membership, and it
// reads it fresh at every evaluation so joins and leaves take effect
// immediately.
package membership

import (
	"context"
	"time"

	id "cinematch/pkg/domain"
)

// Group is the read-side projection of a voting group.
type Group struct {
	ID        id.GroupID
	Code      string
	Active    bool
	CreatedAt time.Time
}

// Service is the membership query surface. Implementations must return
// point-in-time state reflecting recent joins, leaves, and deactivations.
type Service interface {
	// FindGroupByCode resolves the public join code used in URLs.
	// Returns sentinel.ErrNotFound (wrapped) for unknown or inactive groups.
	FindGroupByCode(ctx context.Context, code string) (Group, error)

	// ActiveMembers returns the current active-member set of the group.
	ActiveMembers(ctx context.Context, group id.GroupID) (map[id.MemberID]struct{}, error)

	// IsActiveMember reports whether member is currently active in group.
	IsActiveMember(ctx context.Context, group id.GroupID, member id.MemberID) (bool, error)
}
