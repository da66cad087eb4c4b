package vote

import (
	"context"
	"sync"

	id "cinematch/pkg/domain"
)

type voteKey struct {
	group  id.GroupID
	item   id.ItemID
	member id.MemberID
}

// MemoryStore is the in-memory vote ledger used by unit tests and local
// development.
type MemoryStore struct {
	mu    sync.Mutex
	votes map[voteKey]Vote
}

func NewMemory() *MemoryStore {
	return &MemoryStore{votes: make(map[voteKey]Vote)}
}

func (s *MemoryStore) Record(ctx context.Context, v Vote) ([]id.MemberID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := voteKey{group: v.GroupID, item: v.ItemID, member: v.MemberID}
	if existing, ok := s.votes[key]; !ok || !existing.DecidedAt.After(v.DecidedAt) {
		s.votes[key] = v
	}

	var approvers []id.MemberID
	for k, stored := range s.votes {
		if k.group == v.GroupID && k.item == v.ItemID && stored.Decision == DecisionApprove {
			approvers = append(approvers, k.member)
		}
	}
	return approvers, nil
}
