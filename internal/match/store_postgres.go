package match

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "cinematch/pkg/domain"
	"cinematch/pkg/platform/sentinel"
)

// PostgresRegistry persists matches in PostgreSQL. The (group_id, item_id)
// primary key plus ON CONFLICT DO NOTHING gives the exactly-once claim.
type PostgresRegistry struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

// TryClaim inserts the match unless one already exists for the (group, item)
// pair. RETURNING only fires for the row we inserted, so sql.ErrNoRows means
// we lost the race and the existing row is fetched instead.
func (r *PostgresRegistry) TryClaim(ctx context.Context, m Match) (bool, Match, error) {
	const insert = `
		INSERT INTO matches (id, group_id, item_id, claimed_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (group_id, item_id) DO NOTHING
		RETURNING id, claimed_by, created_at
	`
	var (
		matchID   uuid.UUID
		claimedBy uuid.UUID
	)
	row := r.db.QueryRowContext(ctx, insert,
		uuid.UUID(m.ID), uuid.UUID(m.GroupID), int64(m.ItemID), uuid.UUID(m.ClaimedBy), m.CreatedAt,
	)
	err := row.Scan(&matchID, &claimedBy, &m.CreatedAt)
	switch {
	case err == nil:
		m.ID = id.MatchID(matchID)
		m.ClaimedBy = id.MemberID(claimedBy)
		return true, m, nil
	case errors.Is(err, sql.ErrNoRows):
		existing, err := r.find(ctx, m.GroupID, m.ItemID)
		if err != nil {
			return false, Match{}, err
		}
		return false, existing, nil
	default:
		return false, Match{}, fmt.Errorf("claim match: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
}

func (r *PostgresRegistry) find(ctx context.Context, group id.GroupID, item id.ItemID) (Match, error) {
	const query = `
		SELECT id, claimed_by, created_at
		FROM matches
		WHERE group_id = $1 AND item_id = $2
	`
	m := Match{GroupID: group, ItemID: item}
	var (
		matchID   uuid.UUID
		claimedBy uuid.UUID
	)
	err := r.db.QueryRowContext(ctx, query, uuid.UUID(group), int64(item)).Scan(&matchID, &claimedBy, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// The conflicting row vanished between insert and select. Matches are
		// never deleted in normal operation, so surface it as unavailable and
		// let the caller's vote still succeed.
		return Match{}, fmt.Errorf("conflicting match missing: %w", sentinel.ErrUnavailable)
	}
	if err != nil {
		return Match{}, fmt.Errorf("load match: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	m.ID = id.MatchID(matchID)
	m.ClaimedBy = id.MemberID(claimedBy)
	return m, nil
}

// ListByGroup returns the group's matches, newest first.
func (r *PostgresRegistry) ListByGroup(ctx context.Context, group id.GroupID) ([]Match, error) {
	const query = `
		SELECT id, item_id, claimed_by, created_at
		FROM matches
		WHERE group_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, uuid.UUID(group))
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m := Match{GroupID: group}
		var (
			matchID   uuid.UUID
			item      int64
			claimedBy uuid.UUID
		)
		if err := rows.Scan(&matchID, &item, &claimedBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.ID = id.MatchID(matchID)
		m.ItemID = id.ItemID(item)
		m.ClaimedBy = id.MemberID(claimedBy)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return matches, nil
}
