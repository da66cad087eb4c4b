package session_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"cinematch/internal/broadcast"
	broadcastmetrics "cinematch/internal/broadcast/metrics"
	"cinematch/internal/channel"
	"cinematch/internal/membership"
	"cinematch/internal/metadata"
	"cinematch/internal/session"
	sessionmetrics "cinematch/internal/session/metrics"
	"cinematch/internal/token"

	id "cinematch/pkg/domain"
)

type HandlerSuite struct {
	suite.Suite
	server     *httptest.Server
	tokens     *token.JWTService
	members    *membership.MemoryStore
	registry   *channel.Registry
	dispatcher *broadcast.Dispatcher
	group      membership.Group
	member     id.MemberID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.tokens = token.NewJWTService("test-signing-key", "cinematch")
	s.members = membership.NewMemory()
	s.registry = channel.NewRegistry()
	s.dispatcher = broadcast.NewDispatcher(s.registry, logger, broadcastmetrics.New(prometheus.NewRegistry()))

	s.group = membership.Group{ID: id.NewGroupID(), Code: "movie-night", Active: true, CreatedAt: time.Now()}
	s.members.AddGroup(s.group)
	s.member = id.NewMemberID()
	s.members.AddMember(s.group.ID, s.member)

	handler := session.NewHandler(
		s.tokens, s.members, s.registry, logger,
		sessionmetrics.New(prometheus.NewRegistry()),
		5*time.Second, nil,
	)
	r := chi.NewRouter()
	handler.Register(r)
	s.server = httptest.NewServer(r)
	s.T().Cleanup(s.server.Close)
}

func (s *HandlerSuite) wsURL(groupCode, tokenString string) string {
	url := strings.Replace(s.server.URL, "http://", "ws://", 1) + "/ws/groups/" + groupCode
	if tokenString != "" {
		url += "?token=" + tokenString
	}
	return url
}

func (s *HandlerSuite) dial(ctx context.Context, groupCode, tokenString string) *websocket.Conn {
	conn, _, err := websocket.Dial(ctx, s.wsURL(groupCode, tokenString), nil)
	s.Require().NoError(err)
	return conn
}

func (s *HandlerSuite) memberToken(member id.MemberID) string {
	tokenString, err := s.tokens.GenerateToken(member, time.Hour)
	s.Require().NoError(err)
	return tokenString
}

func (s *HandlerSuite) readEvent(ctx context.Context, conn *websocket.Conn) map[string]any {
	var event map[string]any
	s.Require().NoError(wsjson.Read(ctx, conn, &event))
	return event
}

func (s *HandlerSuite) TestSubscribeConfirms() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := s.dial(ctx, s.group.Code, s.memberToken(s.member))
	defer conn.Close(websocket.StatusNormalClosure, "")

	event := s.readEvent(ctx, conn)
	s.Equal("connection_established", event["type"])
	s.Equal(s.group.ID.String(), event["group"])
	s.Equal(s.member.String(), event["member"])
}

func (s *HandlerSuite) TestAuthFailureCloses4001() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.Run("missing token", func() {
		conn := s.dial(ctx, s.group.Code, "")
		var event map[string]any
		err := wsjson.Read(ctx, conn, &event)
		s.Require().Error(err)
		s.Equal(session.StatusAuthFailure, websocket.CloseStatus(err))
	})

	s.Run("garbage token", func() {
		conn := s.dial(ctx, s.group.Code, "not-a-jwt")
		var event map[string]any
		err := wsjson.Read(ctx, conn, &event)
		s.Require().Error(err)
		s.Equal(session.StatusAuthFailure, websocket.CloseStatus(err))
	})
}

func (s *HandlerSuite) TestNonMemberCloses4003() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.Run("authenticated but not in the group", func() {
		outsider := id.NewMemberID()
		conn := s.dial(ctx, s.group.Code, s.memberToken(outsider))
		var event map[string]any
		err := wsjson.Read(ctx, conn, &event)
		s.Require().Error(err)
		s.Equal(session.StatusNotMember, websocket.CloseStatus(err))
	})

	s.Run("unknown group code", func() {
		conn := s.dial(ctx, "no-such-group", s.memberToken(s.member))
		var event map[string]any
		err := wsjson.Read(ctx, conn, &event)
		s.Require().Error(err)
		s.Equal(session.StatusNotMember, websocket.CloseStatus(err))
	})
}

func (s *HandlerSuite) TestReceivesMatchBroadcast() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := s.dial(ctx, s.group.Code, s.memberToken(s.member))
	defer conn.Close(websocket.StatusNormalClosure, "")
	s.readEvent(ctx, conn) // connection_established

	event := broadcast.MatchFound{
		Type:       broadcast.EventMatchFound,
		Group:      s.group.ID.String(),
		Item:       550,
		Approvers:  []string{s.member.String()},
		Enrichment: metadata.Enrichment{Title: "Fight Club"},
		DetectedAt: time.Now(),
	}
	// Dispatch may race the registry insert on slow machines; the handler
	// registers before confirming, so after the confirmation read above the
	// subscription is guaranteed live.
	delivered := s.dispatcher.PublishMatch(ctx, s.group.ID, event)
	s.Equal(1, delivered)

	got := s.readEvent(ctx, conn)
	s.Equal("match_found", got["type"])
	s.Equal(float64(550), got["item"])
	enrichment, ok := got["enrichment"].(map[string]any)
	s.Require().True(ok)
	s.Equal("Fight Club", enrichment["title"])
}

func (s *HandlerSuite) TestPingPong() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := s.dial(ctx, s.group.Code, s.memberToken(s.member))
	defer conn.Close(websocket.StatusNormalClosure, "")
	s.readEvent(ctx, conn)

	s.Require().NoError(wsjson.Write(ctx, conn, map[string]string{"type": "ping"}))
	event := s.readEvent(ctx, conn)
	s.Equal("pong", event["type"])
}

func (s *HandlerSuite) TestUnknownMessageType() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := s.dial(ctx, s.group.Code, s.memberToken(s.member))
	defer conn.Close(websocket.StatusNormalClosure, "")
	s.readEvent(ctx, conn)

	s.Require().NoError(wsjson.Write(ctx, conn, map[string]string{"type": "selfdestruct"}))
	event := s.readEvent(ctx, conn)
	s.Equal("error", event["type"])
	s.NotEmpty(event["message"])
}

func (s *HandlerSuite) TestDisconnectUnsubscribes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := s.dial(ctx, s.group.Code, s.memberToken(s.member))
	s.readEvent(ctx, conn)
	s.Require().Eventually(func() bool {
		return s.registry.Count(s.group.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close(websocket.StatusNormalClosure, "")

	s.Require().Eventually(func() bool {
		return s.registry.Count(s.group.ID) == 0
	}, 2*time.Second, 10*time.Millisecond, "disconnect must remove the subscription")
}
