//go:build integration

package match_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"cinematch/internal/match"

	id "cinematch/pkg/domain"
	"cinematch/pkg/testutil/containers"
)

type PostgresRegistrySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	registry *match.PostgresRegistry
	group    id.GroupID
}

func TestPostgresRegistrySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRegistrySuite))
}

func (s *PostgresRegistrySuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.registry = match.NewPostgres(s.postgres.DB)
}

func (s *PostgresRegistrySuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "matches", "groups")
	s.Require().NoError(err)

	s.group = id.NewGroupID()
	_, err = s.postgres.DB.ExecContext(ctx,
		`INSERT INTO groups (id, code, is_active, created_at) VALUES ($1, $2, TRUE, NOW())`,
		uuid.UUID(s.group), "code-"+uuid.NewString())
	s.Require().NoError(err)
}

func (s *PostgresRegistrySuite) newMatch(item id.ItemID) match.Match {
	return match.Match{
		ID:        id.NewMatchID(),
		GroupID:   s.group,
		ItemID:    item,
		ClaimedBy: id.NewMemberID(),
		CreatedAt: time.Now().UTC(),
	}
}

func (s *PostgresRegistrySuite) TestTryClaim() {
	ctx := context.Background()

	first := s.newMatch(550)
	created, winner, err := s.registry.TryClaim(ctx, first)
	s.Require().NoError(err)
	s.True(created)
	s.Equal(first.ID, winner.ID)

	second := s.newMatch(550)
	created, result, err := s.registry.TryClaim(ctx, second)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(winner.ID, result.ID)
	s.Equal(winner.ClaimedBy, result.ClaimedBy)
}

// TestConcurrentClaim verifies that racing claimants on a live database
// produce exactly one created row and all converge on it.
func (s *PostgresRegistrySuite) TestConcurrentClaim() {
	ctx := context.Background()
	const goroutines = 50
	item := id.ItemID(700)

	var wg sync.WaitGroup
	var createdCount atomic.Int32
	results := make([]match.Match, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, result, err := s.registry.TryClaim(ctx, s.newMatch(item))
			s.NoError(err)
			if created {
				createdCount.Add(1)
			}
			results[i] = result
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), createdCount.Load(), "exactly one claim should win")
	winner := results[0]
	for _, r := range results {
		s.Equal(winner.ID, r.ID)
	}

	var count int
	err := s.postgres.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE group_id = $1 AND item_id = $2`,
		uuid.UUID(s.group), int64(item)).Scan(&count)
	s.Require().NoError(err)
	s.Equal(1, count, "only one row may exist for the pair")
}

func (s *PostgresRegistrySuite) TestListByGroup() {
	ctx := context.Background()

	older := s.newMatch(100)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := s.newMatch(200)

	_, _, err := s.registry.TryClaim(ctx, older)
	s.Require().NoError(err)
	_, _, err = s.registry.TryClaim(ctx, newer)
	s.Require().NoError(err)

	matches, err := s.registry.ListByGroup(ctx, s.group)
	s.Require().NoError(err)
	s.Require().Len(matches, 2)
	s.Equal(newer.ID, matches[0].ID, "newest first")
	s.Equal(older.ID, matches[1].ID)
}
