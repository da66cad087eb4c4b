package membership

import (
	"context"
	"fmt"
	"sync"

	id "cinematch/pkg/domain"
	"cinematch/pkg/platform/sentinel"
)

// MemoryStore is the in-memory membership implementation used by unit tests
// and local development. Mutation helpers stand in for the external
// group-management service.
type MemoryStore struct {
	mu      sync.RWMutex
	groups  map[id.GroupID]Group
	byCode  map[string]id.GroupID
	members map[id.GroupID]map[id.MemberID]bool // member -> active
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		groups:  make(map[id.GroupID]Group),
		byCode:  make(map[string]id.GroupID),
		members: make(map[id.GroupID]map[id.MemberID]bool),
	}
}

// AddGroup registers a group as the external service would.
func (s *MemoryStore) AddGroup(g Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
	s.byCode[g.Code] = g.ID
	if _, ok := s.members[g.ID]; !ok {
		s.members[g.ID] = make(map[id.MemberID]bool)
	}
}

// AddMember marks a member active in a group.
func (s *MemoryStore) AddMember(group id.GroupID, member id.MemberID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[group]; !ok {
		s.members[group] = make(map[id.MemberID]bool)
	}
	s.members[group][member] = true
}

// DeactivateMember marks a member inactive without removing their votes.
func (s *MemoryStore) DeactivateMember(group id.GroupID, member id.MemberID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if members, ok := s.members[group]; ok {
		members[member] = false
	}
}

func (s *MemoryStore) FindGroupByCode(ctx context.Context, code string) (Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	groupID, ok := s.byCode[code]
	if !ok {
		return Group{}, fmt.Errorf("group %q: %w", code, sentinel.ErrNotFound)
	}
	g := s.groups[groupID]
	if !g.Active {
		return Group{}, fmt.Errorf("group %q: %w", code, sentinel.ErrNotFound)
	}
	return g, nil
}

func (s *MemoryStore) ActiveMembers(ctx context.Context, group id.GroupID) (map[id.MemberID]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	active := make(map[id.MemberID]struct{})
	for member, isActive := range s.members[group] {
		if isActive {
			active[member] = struct{}{}
		}
	}
	return active, nil
}

func (s *MemoryStore) IsActiveMember(ctx context.Context, group id.GroupID, member id.MemberID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members[group][member], nil
}
