package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied idempotently at startup. The groups and group_members
// tables are written by the external group-management service; the core only
// reads them, but creating them here keeps local development and tests
// self-contained.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS groups (
		id         uuid PRIMARY KEY,
		code       text NOT NULL UNIQUE,
		is_active  boolean NOT NULL DEFAULT true,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS group_members (
		group_id  uuid NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		member_id uuid NOT NULL,
		is_active boolean NOT NULL DEFAULT true,
		joined_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (group_id, member_id)
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		group_id   uuid NOT NULL,
		item_id    bigint NOT NULL,
		member_id  uuid NOT NULL,
		decision   text NOT NULL,
		decided_at timestamptz NOT NULL,
		PRIMARY KEY (group_id, item_id, member_id)
	)`,
	`CREATE INDEX IF NOT EXISTS votes_group_item_decision_idx
		ON votes (group_id, item_id, decision)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id         uuid NOT NULL,
		group_id   uuid NOT NULL,
		item_id    bigint NOT NULL,
		claimed_by uuid NOT NULL,
		created_at timestamptz NOT NULL,
		PRIMARY KEY (group_id, item_id)
	)`,
	`CREATE INDEX IF NOT EXISTS matches_group_created_idx
		ON matches (group_id, created_at DESC)`,
}

// Migrate applies the schema statements in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
