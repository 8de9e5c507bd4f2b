// store/memory.go
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/dev-mohitbeniwal/guardian/model"
)

type tripleKey struct {
	object     model.ObjectID
	subject    model.SubjectID
	permission string
}

// MemoryStore is the reference ACLStore, backed by a mutex-guarded map
// keyed by the full (object, subject, permission) triple.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[tripleKey]model.ACLEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[tripleKey]model.ACLEntry),
	}
}

func (s *MemoryStore) Put(_ context.Context, entry model.ACLEntry) (bool, error) {
	if err := entry.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := tripleKey{entry.Object, entry.Subject, entry.Permission}
	if _, exists := s.entries[key]; exists {
		return false, nil
	}
	s.entries[key] = entry
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, object model.ObjectID, subject model.SubjectID, permission string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tripleKey{object, subject, permission}
	if _, exists := s.entries[key]; !exists {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

func (s *MemoryStore) Search(_ context.Context, query Query) ([]model.ACLEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]model.ACLEntry, 0)
	for _, entry := range s.entries {
		if query.Matches(entry) {
			matches = append(matches, entry)
		}
	}
	sortEntries(matches)
	return matches, nil
}

func sortEntries(entries []model.ACLEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Object != entries[j].Object {
			return entries[i].Object.String() < entries[j].Object.String()
		}
		if entries[i].Subject != entries[j].Subject {
			return entries[i].Subject.String() < entries[j].Subject.String()
		}
		return entries[i].Permission < entries[j].Permission
	})
}
