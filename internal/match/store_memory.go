package match

import (
	"context"
	"sort"
	"sync"

	id "cinematch/pkg/domain"
)

type matchKey struct {
	group id.GroupID
	item  id.ItemID
}

// MemoryRegistry is the in-memory match registry used by unit tests and local
// development. The mutex makes TryClaim atomic the same way the database
// constraint does.
type MemoryRegistry struct {
	mu      sync.Mutex
	matches map[matchKey]Match
}

func NewMemory() *MemoryRegistry {
	return &MemoryRegistry{matches: make(map[matchKey]Match)}
}

func (r *MemoryRegistry) TryClaim(ctx context.Context, m Match) (bool, Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := matchKey{group: m.GroupID, item: m.ItemID}
	if existing, ok := r.matches[key]; ok {
		return false, existing, nil
	}
	r.matches[key] = m
	return true, m, nil
}

func (r *MemoryRegistry) ListByGroup(ctx context.Context, group id.GroupID) ([]Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matches []Match
	for key, m := range r.matches {
		if key.group == group {
			matches = append(matches, m)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}
