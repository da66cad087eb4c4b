package vote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "cinematch/pkg/domain"
	"cinematch/pkg/platform/sentinel"
)

// PostgresStore persists votes in PostgreSQL. The upsert serializes same-key
// writers on the row while leaving other members' votes unblocked.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed vote ledger.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Record upserts the vote, then reads the approve-voter set. The upsert is a
// single autocommitted statement, so by the time the read runs the write is
// visible to every other writer's read as well: of two racing final approvals,
// whichever commits second is guaranteed to observe the complete set. Wrapping
// both in one transaction would let concurrent SELECTs miss each other's
// uncommitted votes. The decided_at guard keeps a delayed duplicate from
// clobbering a newer decision (last write wins by timestamp, not arrival
// order).
func (s *PostgresStore) Record(ctx context.Context, v Vote) ([]id.MemberID, error) {
	const upsert = `
		INSERT INTO votes (group_id, item_id, member_id, decision, decided_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (group_id, item_id, member_id) DO UPDATE SET
			decision   = EXCLUDED.decision,
			decided_at = EXCLUDED.decided_at
		WHERE votes.decided_at <= EXCLUDED.decided_at
	`
	if _, err := s.db.ExecContext(ctx, upsert,
		uuid.UUID(v.GroupID), int64(v.ItemID), uuid.UUID(v.MemberID), string(v.Decision), v.DecidedAt,
	); err != nil {
		return nil, fmt.Errorf("record vote: %w", errors.Join(sentinel.ErrUnavailable, err))
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT member_id FROM votes WHERE group_id = $1 AND item_id = $2 AND decision = $3`,
		uuid.UUID(v.GroupID), int64(v.ItemID), string(DecisionApprove),
	)
	if err != nil {
		return nil, fmt.Errorf("query approvers: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	defer rows.Close()

	var approvers []id.MemberID
	for rows.Next() {
		var memberID uuid.UUID
		if err := rows.Scan(&memberID); err != nil {
			return nil, fmt.Errorf("scan approver: %w", err)
		}
		approvers = append(approvers, id.MemberID(memberID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approvers: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return approvers, nil
}
