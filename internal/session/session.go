// Package session manages the lifecycle of one WebSocket subscriber
// connection, from handshake through authenticated subscription to close.
package session

import (
	"errors"
	"fmt"
	"sync"

	id "cinematch/pkg/domain"
)

// State is the connection lifecycle phase. Transitions only move forward:
// Connecting -> Authenticated -> Subscribed -> Closed, with Closed reachable
// from any phase.
type State int

const (
	StateConnecting State = iota
	StateAuthenticated
	StateSubscribed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateSubscribed:
		return "subscribed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrSessionClosed is returned by Deliver after the session has shut down.
var ErrSessionClosed = errors.New("session closed")

// ErrSlowSubscriber is returned by Deliver when the outbox is full. The
// dispatcher skips the event rather than block a broadcast on one reader.
var ErrSlowSubscriber = errors.New("subscriber outbox full")

const outboxSize = 16

// Session is one live connection. It implements channel.Subscriber: Deliver
// enqueues without blocking and the write pump drains the outbox to the wire.
type Session struct {
	id     id.ConnectionID
	member id.MemberID
	group  id.GroupID

	outbox chan any
	done   chan struct{}

	mu        sync.Mutex
	state     State
	closeOnce sync.Once
}

// New creates a session in the Connecting state. Member and group are filled
// in as the handshake advances.
func New() *Session {
	return &Session{
		id:     id.NewConnectionID(),
		outbox: make(chan any, outboxSize),
		done:   make(chan struct{}),
		state:  StateConnecting,
	}
}

func (s *Session) ID() id.ConnectionID { return s.id }
func (s *Session) Member() id.MemberID { return s.member }
func (s *Session) Group() id.GroupID   { return s.group }

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Authenticate records the validated identity. Only legal from Connecting.
func (s *Session) Authenticate(member id.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnecting {
		return fmt.Errorf("authenticate from %s", s.state)
	}
	s.member = member
	s.state = StateAuthenticated
	return nil
}

// Subscribe records the group binding. Only legal from Authenticated; a
// connection subscribes to exactly one group for its lifetime.
func (s *Session) Subscribe(group id.GroupID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated {
		return fmt.Errorf("subscribe from %s", s.state)
	}
	s.group = group
	s.state = StateSubscribed
	return nil
}

// Deliver enqueues a payload for the write pump. It never blocks: a closed
// session or full outbox returns an error and the event is dropped for this
// subscriber only.
func (s *Session) Deliver(payload any) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.outbox <- payload:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		return ErrSlowSubscriber
	}
}

// Close moves the session to Closed and releases the write pump. Safe to call
// from any state, any number of times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		close(s.done)
	})
}

// Done is closed when the session shuts down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Outbox exposes the pending-event queue to the write pump.
func (s *Session) Outbox() <-chan any { return s.outbox }
