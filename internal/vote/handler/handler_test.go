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
	"cinematch/internal/consensus"
	"cinematch/internal/match"
	matchmetrics "cinematch/internal/match/metrics"
	"cinematch/internal/membership"
	"cinematch/internal/vote"
	votemetrics "cinematch/internal/vote/metrics"

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
	members *membership.MemoryStore
	group   membership.Group
	alice   id.MemberID
	bob     id.MemberID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.members = membership.NewMemory()

	detector := match.NewService(
		match.NewMemory(), nil, silentBroadcaster{},
		match.NewStreamPublisher(nil, "matches", logger),
		logger, matchmetrics.New(prometheus.NewRegistry()),
	)
	service := vote.NewService(
		vote.NewMemory(), s.members, consensus.New(s.members), detector,
		logger, votemetrics.New(prometheus.NewRegistry()),
	)

	s.group = membership.Group{ID: id.NewGroupID(), Code: "movie-night", Active: true, CreatedAt: time.Now()}
	s.members.AddGroup(s.group)
	s.alice = id.NewMemberID()
	s.bob = id.NewMemberID()
	s.members.AddMember(s.group.ID, s.alice)
	s.members.AddMember(s.group.ID, s.bob)

	s.router = chi.NewRouter()
	New(service, s.members, logger).Register(s.router)
}

func (s *HandlerSuite) submit(member id.MemberID, groupCode string, body any) *http.Request {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/groups/"+groupCode+"/votes", body)
	return testutil.WithMemberID(req, member.String())
}

func (s *HandlerSuite) TestSubmit() {
	s.Run("valid approve vote", func() {
		req := s.submit(s.alice, s.group.Code, map[string]any{"item_id": 550, "decision": "approve"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
		s.Equal("approve", (*resp)["decision"])
		s.Equal(false, (*resp)["matched"])
		s.Len((*resp)["approvers"], 1)
	})

	s.Run("completing vote reports the match", func() {
		req := s.submit(s.bob, s.group.Code, map[string]any{"item_id": 550, "decision": "approve"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
		s.Equal(true, (*resp)["matched"])
		s.NotNil((*resp)["match"])
	})
}

func (s *HandlerSuite) TestSubmitValidation() {
	s.Run("unknown group", func() {
		req := s.submit(s.alice, "nope", map[string]any{"item_id": 1, "decision": "approve"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("malformed body", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/groups/"+s.group.Code+"/votes", "{not json")
		rr := testutil.DoRequest(s.router, testutil.WithMemberID(req, s.alice.String()))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("invalid decision", func() {
		req := s.submit(s.alice, s.group.Code, map[string]any{"item_id": 1, "decision": "maybe"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("non-positive item", func() {
		req := s.submit(s.alice, s.group.Code, map[string]any{"item_id": 0, "decision": "approve"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("non-member is forbidden", func() {
		req := s.submit(id.NewMemberID(), s.group.Code, map[string]any{"item_id": 1, "decision": "approve"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})
}
