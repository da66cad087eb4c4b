package match

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"cinematch/internal/broadcast"
	"cinematch/internal/match/metrics"
	"cinematch/internal/metadata"

	id "cinematch/pkg/domain"
)

type fakeBroadcaster struct {
	events     []broadcast.MatchFound
	recipients int
}

func (f *fakeBroadcaster) PublishMatch(ctx context.Context, group id.GroupID, event broadcast.MatchFound) int {
	f.events = append(f.events, event)
	return f.recipients
}

type fakeDescriber struct {
	enrichment metadata.Enrichment
	err        error
}

func (f *fakeDescriber) Describe(ctx context.Context, item id.ItemID) (metadata.Enrichment, error) {
	if f.err != nil {
		return metadata.Enrichment{}, f.err
	}
	return f.enrichment, nil
}

type ServiceSuite struct {
	suite.Suite
	registry    *MemoryRegistry
	broadcaster *fakeBroadcaster
	describer   *fakeDescriber
	service     *Service
	group       id.GroupID
	member      id.MemberID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.registry = NewMemory()
	s.broadcaster = &fakeBroadcaster{recipients: 3}
	s.describer = &fakeDescriber{enrichment: metadata.Enrichment{Title: "Fight Club"}}
	s.service = NewService(
		s.registry,
		s.describer,
		s.broadcaster,
		NewStreamPublisher(nil, "matches", logger),
		logger,
		metrics.New(prometheus.NewRegistry()),
	)
	s.group = id.NewGroupID()
	s.member = id.NewMemberID()
}

func (s *ServiceSuite) TestDetect() {
	ctx := context.Background()
	approvers := []id.MemberID{s.member, id.NewMemberID()}

	s.Run("winning claim broadcasts exactly once", func() {
		outcome, err := s.service.Detect(ctx, s.group, 550, s.member, approvers)
		s.NoError(err)
		s.True(outcome.Created)
		s.Equal("Fight Club", outcome.Enrichment.Title)
		s.Equal(3, outcome.Recipients)
		s.Require().Len(s.broadcaster.events, 1)
		s.Equal(broadcast.EventMatchFound, s.broadcaster.events[0].Type)
		s.Len(s.broadcaster.events[0].Approvers, 2)
	})

	s.Run("losing claim does not broadcast again", func() {
		outcome, err := s.service.Detect(ctx, s.group, 550, id.NewMemberID(), approvers)
		s.NoError(err)
		s.False(outcome.Created)
		s.Equal(s.member, outcome.Match.ClaimedBy, "loser sees the winner's row")
		s.Len(s.broadcaster.events, 1, "still only the winner's broadcast")
	})
}

func (s *ServiceSuite) TestDetectDegradedEnrichment() {
	ctx := context.Background()
	s.describer.err = errors.New("metadata service down")

	outcome, err := s.service.Detect(ctx, s.group, 680, s.member, []id.MemberID{s.member})
	s.NoError(err, "metadata failure must not fail the match")
	s.True(outcome.Created)
	s.True(outcome.Enrichment.Degraded)
	s.NotEmpty(outcome.Enrichment.Title)
	s.Require().Len(s.broadcaster.events, 1)
	s.True(s.broadcaster.events[0].Enrichment.Degraded, "the degraded payload is what subscribers get")
}

func (s *ServiceSuite) TestDetectWithoutDescriber() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewService(
		s.registry, nil, s.broadcaster,
		NewStreamPublisher(nil, "matches", logger),
		logger, metrics.New(prometheus.NewRegistry()),
	)

	outcome, err := service.Detect(ctx, s.group, 100, s.member, []id.MemberID{s.member})
	s.NoError(err)
	s.True(outcome.Created)
	s.True(outcome.Enrichment.Degraded)
}

func (s *ServiceSuite) TestHistory() {
	ctx := context.Background()

	_, err := s.service.Detect(ctx, s.group, 1, s.member, []id.MemberID{s.member})
	s.Require().NoError(err)
	_, err = s.service.Detect(ctx, s.group, 2, s.member, []id.MemberID{s.member})
	s.Require().NoError(err)

	matches, err := s.service.History(ctx, s.group)
	s.NoError(err)
	s.Len(matches, 2)
}
