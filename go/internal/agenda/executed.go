package agenda

import (
	"sort"
	"sync"
)

// ExecutedSet records which agenda items have already fired for this participant.
// Ids are only ever added while the item exists; Forget is reserved for item deletion.
type ExecutedSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewExecutedSet creates an empty executed set.
func NewExecutedSet() *ExecutedSet {
	return &ExecutedSet{ids: make(map[string]struct{})}
}

// MarkExecuted records id as fired. It reports whether the id was newly added.
func (s *ExecutedSet) MarkExecuted(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// HasExecuted reports whether id has fired.
func (s *ExecutedSet) HasExecuted(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// ApplySnapshot seeds the set from an authoritative snapshot.
// On a fresh set this is a replace; on a set that already holds ids (a reconnect)
// the snapshot is merged so nothing previously fired is lost.
func (s *ExecutedSet) ApplySnapshot(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if id == "" {
			continue
		}
		s.ids[id] = struct{}{}
	}
}

// Forget drops the bookkeeping for a deleted agenda item.
func (s *ExecutedSet) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

// IDs returns the executed ids in sorted order.
func (s *ExecutedSet) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of executed ids.
func (s *ExecutedSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
