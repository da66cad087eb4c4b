package session

import (
	"testing"

	"github.com/stretchr/testify/suite"

	id "cinematch/pkg/domain"
)

type SessionSuite struct {
	suite.Suite
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) TestLifecycle() {
	sess := New()
	s.Equal(StateConnecting, sess.State())

	member := id.NewMemberID()
	s.NoError(sess.Authenticate(member))
	s.Equal(StateAuthenticated, sess.State())
	s.Equal(member, sess.Member())

	group := id.NewGroupID()
	s.NoError(sess.Subscribe(group))
	s.Equal(StateSubscribed, sess.State())
	s.Equal(group, sess.Group())

	sess.Close()
	s.Equal(StateClosed, sess.State())
}

func (s *SessionSuite) TestIllegalTransitions() {
	s.Run("subscribe before authenticate", func() {
		sess := New()
		s.Error(sess.Subscribe(id.NewGroupID()))
	})

	s.Run("authenticate twice", func() {
		sess := New()
		s.Require().NoError(sess.Authenticate(id.NewMemberID()))
		s.Error(sess.Authenticate(id.NewMemberID()))
	})

	s.Run("authenticate after close", func() {
		sess := New()
		sess.Close()
		s.Error(sess.Authenticate(id.NewMemberID()))
	})

	s.Run("close is idempotent from any state", func() {
		sess := New()
		sess.Close()
		sess.Close()
		s.Equal(StateClosed, sess.State())
	})
}

func (s *SessionSuite) TestDeliver() {
	s.Run("enqueues without blocking", func() {
		sess := New()
		s.NoError(sess.Deliver("event"))
		select {
		case got := <-sess.Outbox():
			s.Equal("event", got)
		default:
			s.Fail("expected event in outbox")
		}
	})

	s.Run("full outbox reports a slow subscriber", func() {
		sess := New()
		for i := 0; i < outboxSize; i++ {
			s.Require().NoError(sess.Deliver(i))
		}
		s.ErrorIs(sess.Deliver("overflow"), ErrSlowSubscriber)
	})

	s.Run("closed session rejects delivery", func() {
		sess := New()
		sess.Close()
		s.ErrorIs(sess.Deliver("event"), ErrSessionClosed)
	})
}
