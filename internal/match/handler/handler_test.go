package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"cinematch/internal/broadcast"
	"cinematch/internal/match"
	matchmetrics "cinematch/internal/match/metrics"
	"cinematch/internal/membership"

	id "cinematch/pkg/domain"
	"cinematch/pkg/testutil"
)

type silentBroadcaster struct{}

func (silentBroadcaster) PublishMatch(ctx context.Context, group id.GroupID, event broadcast.MatchFound) int {
	return 0
}

type HandlerSuite struct {
	suite.Suite
	router  chi.Router
	service *match.Service
	members *membership.MemoryStore
	group   membership.Group
	member  id.MemberID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.members = membership.NewMemory()
	s.service = match.NewService(
		match.NewMemory(), nil, silentBroadcaster{},
		match.NewStreamPublisher(nil, "matches", logger),
		logger, matchmetrics.New(prometheus.NewRegistry()),
	)

	s.group = membership.Group{ID: id.NewGroupID(), Code: "movie-night", Active: true, CreatedAt: time.Now()}
	s.members.AddGroup(s.group)
	s.member = id.NewMemberID()
	s.members.AddMember(s.group.ID, s.member)

	s.router = chi.NewRouter()
	New(s.service, s.members, logger).Register(s.router)
}

func (s *HandlerSuite) list(member id.MemberID, groupCode string) *http.Request {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/groups/"+groupCode+"/matches")
	return testutil.WithMemberID(req, member.String())
}

func (s *HandlerSuite) TestList() {
	ctx := context.Background()

	s.Run("empty history", func() {
		rr := testutil.DoRequest(s.router, s.list(s.member, s.group.Code))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[map[string][]map[string]any](s.T(), rr)
		s.Empty((*resp)["matches"])
	})

	s.Run("returns recorded matches", func() {
		_, err := s.service.Detect(ctx, s.group.ID, 550, s.member, []id.MemberID{s.member})
		s.Require().NoError(err)

		rr := testutil.DoRequest(s.router, s.list(s.member, s.group.Code))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[map[string][]map[string]any](s.T(), rr)
		s.Require().Len((*resp)["matches"], 1)
		s.Equal(float64(550), (*resp)["matches"][0]["item"])
		s.Equal(s.member.String(), (*resp)["matches"][0]["claimedBy"])
	})
}

func (s *HandlerSuite) TestListAuthorization() {
	s.Run("unknown group", func() {
		rr := testutil.DoRequest(s.router, s.list(s.member, "nope"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("non-member is forbidden", func() {
		rr := testutil.DoRequest(s.router, s.list(id.NewMemberID(), s.group.Code))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})
}
