package consensus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cinematch/internal/membership"

	id "cinematch/pkg/domain"
)

type EvaluatorSuite struct {
	suite.Suite
	members   *membership.MemoryStore
	evaluator *Evaluator
	group     membership.Group
	item      id.ItemID
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	s.members = membership.NewMemory()
	s.evaluator = New(s.members)
	s.group = membership.Group{
		ID:        id.NewGroupID(),
		Code:      "movie-night",
		Active:    true,
		CreatedAt: time.Now(),
	}
	s.members.AddGroup(s.group)
	s.item = id.ItemID(550)
}

func (s *EvaluatorSuite) addMembers(n int) []id.MemberID {
	members := make([]id.MemberID, n)
	for i := range members {
		members[i] = id.NewMemberID()
		s.members.AddMember(s.group.ID, members[i])
	}
	return members
}

func (s *EvaluatorSuite) TestIsConsensus() {
	ctx := context.Background()

	s.Run("empty group never reaches consensus", func() {
		reached, err := s.evaluator.IsConsensus(ctx, s.group.ID, s.item, nil)
		s.NoError(err)
		s.False(reached)
	})

	s.Run("all active members approved", func() {
		members := s.addMembers(3)
		reached, err := s.evaluator.IsConsensus(ctx, s.group.ID, s.item, members)
		s.NoError(err)
		s.True(reached)
	})

	s.Run("one member missing blocks consensus", func() {
		extra := id.NewMemberID()
		s.members.AddMember(s.group.ID, extra)

		active, err := s.members.ActiveMembers(ctx, s.group.ID)
		s.Require().NoError(err)
		var partial []id.MemberID
		for m := range active {
			if m != extra {
				partial = append(partial, m)
			}
		}

		reached, err := s.evaluator.IsConsensus(ctx, s.group.ID, s.item, partial)
		s.NoError(err)
		s.False(reached)
	})

	s.Run("extra approvers beyond the active set do not hurt", func() {
		active, err := s.members.ActiveMembers(ctx, s.group.ID)
		s.Require().NoError(err)
		approvers := []id.MemberID{id.NewMemberID()} // a former member's stale vote
		for m := range active {
			approvers = append(approvers, m)
		}

		reached, err := s.evaluator.IsConsensus(ctx, s.group.ID, s.item, approvers)
		s.NoError(err)
		s.True(reached)
	})

	s.Run("deactivated member stops counting immediately", func() {
		active, err := s.members.ActiveMembers(ctx, s.group.ID)
		s.Require().NoError(err)
		var all []id.MemberID
		for m := range active {
			all = append(all, m)
		}
		s.Require().NotEmpty(all)

		// Everyone but the last approved; the last leaves instead.
		leaver := all[len(all)-1]
		approvers := all[:len(all)-1]
		s.members.DeactivateMember(s.group.ID, leaver)

		reached, err := s.evaluator.IsConsensus(ctx, s.group.ID, s.item, approvers)
		s.NoError(err)
		s.True(reached, "a leaver must not block consensus among the remaining members")
	})
}
