package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "cinematch/pkg/domain"
	"cinematch/pkg/platform/sentinel"
)

// PostgresStore reads membership state from the tables the group-management
// service maintains. The core never writes them.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed membership reader.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindGroupByCode(ctx context.Context, code string) (Group, error) {
	var g Group
	var groupID uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT id, code, is_active, created_at FROM groups WHERE code = $1 AND is_active`,
		code,
	).Scan(&groupID, &g.Code, &g.Active, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Group{}, fmt.Errorf("group %q: %w", code, sentinel.ErrNotFound)
		}
		return Group{}, fmt.Errorf("find group by code: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	g.ID = id.GroupID(groupID)
	return g, nil
}

func (s *PostgresStore) ActiveMembers(ctx context.Context, group id.GroupID) (map[id.MemberID]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT member_id FROM group_members WHERE group_id = $1 AND is_active`,
		uuid.UUID(group),
	)
	if err != nil {
		return nil, fmt.Errorf("query active members: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	defer rows.Close()

	members := make(map[id.MemberID]struct{})
	for rows.Next() {
		var memberID uuid.UUID
		if err := rows.Scan(&memberID); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members[id.MemberID(memberID)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return members, nil
}

func (s *PostgresStore) IsActiveMember(ctx context.Context, group id.GroupID, member id.MemberID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM group_members
			WHERE group_id = $1 AND member_id = $2 AND is_active
		)`,
		uuid.UUID(group), uuid.UUID(member),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return exists, nil
}
