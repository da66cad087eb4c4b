// Package channel tracks which live connections are subscribed to which
// group. It is the routing table the dispatcher consults when a match fires.
package channel

import (
	"sync"

	id "cinematch/pkg/domain"
)

// Subscriber is a live connection that can receive group events. Deliver must
// not block: slow or closed subscribers report an error and the caller moves
// on.
type Subscriber interface {
	ID() id.ConnectionID
	Member() id.MemberID
	Deliver(payload any) error
}

// groupChannel holds the subscribers of one group behind its own lock so
// traffic in one group never contends with another.
type groupChannel struct {
	mu   sync.Mutex
	subs map[id.ConnectionID]Subscriber
}

// Registry maps groups to their live subscribers. The outer lock guards the
// group and connection maps only; per-group membership changes take the inner
// lock. Lock order is always outer then inner.
type Registry struct {
	mu     sync.RWMutex
	groups map[id.GroupID]*groupChannel
	conns  map[id.ConnectionID]id.GroupID
}

func NewRegistry() *Registry {
	return &Registry{
		groups: make(map[id.GroupID]*groupChannel),
		conns:  make(map[id.ConnectionID]id.GroupID),
	}
}

// Subscribe adds the subscriber to the group's channel. A connection belongs
// to at most one group: subscribing again moves it, dropping the previous
// subscription first.
func (r *Registry) Subscribe(group id.GroupID, sub Subscriber) {
	r.Unsubscribe(sub.ID())

	r.mu.Lock()
	ch, ok := r.groups[group]
	if !ok {
		ch = &groupChannel{subs: make(map[id.ConnectionID]Subscriber)}
		r.groups[group] = ch
	}
	r.conns[sub.ID()] = group
	// Insert before releasing the outer lock: the empty-group cleanup in
	// Unsubscribe holds both locks, so it can never reap the channel between
	// the conns write and this insert.
	ch.mu.Lock()
	ch.subs[sub.ID()] = sub
	ch.mu.Unlock()
	r.mu.Unlock()
}

// Unsubscribe removes the connection from whatever group it is subscribed to.
// Unknown connections are a no-op, so disconnect paths can call it
// unconditionally.
func (r *Registry) Unsubscribe(conn id.ConnectionID) {
	r.mu.Lock()
	group, ok := r.conns[conn]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, conn)
	ch := r.groups[group]
	r.mu.Unlock()

	if ch == nil {
		return
	}
	ch.mu.Lock()
	delete(ch.subs, conn)
	empty := len(ch.subs) == 0
	ch.mu.Unlock()

	if empty {
		r.mu.Lock()
		// Re-check under the outer lock: a Subscribe may have raced in.
		ch.mu.Lock()
		if len(ch.subs) == 0 && r.groups[group] == ch {
			delete(r.groups, group)
		}
		ch.mu.Unlock()
		r.mu.Unlock()
	}
}

// Snapshot returns the group's current subscribers as a copied slice. Callers
// deliver against the snapshot without holding any registry lock, so a
// subscriber joining mid-broadcast is simply not in this round.
func (r *Registry) Snapshot(group id.GroupID) []Subscriber {
	r.mu.RLock()
	ch := r.groups[group]
	r.mu.RUnlock()
	if ch == nil {
		return nil
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	subs := make([]Subscriber, 0, len(ch.subs))
	for _, sub := range ch.subs {
		subs = append(subs, sub)
	}
	return subs
}

// Count reports how many subscribers the group currently has.
func (r *Registry) Count(group id.GroupID) int {
	r.mu.RLock()
	ch := r.groups[group]
	r.mu.RUnlock()
	if ch == nil {
		return 0
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.subs)
}
