// Package domain holds the identifier types shared across features. IDs are
// UUID-backed value types so handlers, services, and stores agree on what a
// "group" or "member" is without importing each other.
package domain

import (
	"github.com/google/uuid"

	dErrors "cinematch/pkg/domain-errors"
)

// GroupID identifies a voting group.
type GroupID uuid.UUID

// MemberID identifies a group member (the authenticated identity).
type MemberID uuid.UUID

// MatchID identifies a recorded match.
type MatchID uuid.UUID

// ConnectionID identifies a single live subscriber connection. A member may
// hold several at once (one per device).
type ConnectionID uuid.UUID

func (id GroupID) String() string      { return uuid.UUID(id).String() }
func (id MemberID) String() string     { return uuid.UUID(id).String() }
func (id MatchID) String() string      { return uuid.UUID(id).String() }
func (id ConnectionID) String() string { return uuid.UUID(id).String() }

func (id GroupID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }
func (id MemberID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// NewGroupID generates a fresh group identifier.
func NewGroupID() GroupID { return GroupID(uuid.New()) }

// NewMemberID generates a fresh member identifier.
func NewMemberID() MemberID { return MemberID(uuid.New()) }

// NewMatchID generates a fresh match identifier.
func NewMatchID() MatchID { return MatchID(uuid.New()) }

// NewConnectionID generates a fresh connection identifier.
func NewConnectionID() ConnectionID { return ConnectionID(uuid.New()) }

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseGroupID parses a group ID from its string form.
func ParseGroupID(raw string) (GroupID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return GroupID{}, err
	}
	return GroupID(parsed), nil
}

// ParseMemberID parses a member ID from its string form.
func ParseMemberID(raw string) (MemberID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return MemberID{}, err
	}
	return MemberID(parsed), nil
}

// ParseMatchID parses a match ID from its string form.
func ParseMatchID(raw string) (MatchID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return MatchID{}, err
	}
	return MatchID(parsed), nil
}
