package core

import (
	"sort"
	"sync"
)

// DefaultMaxThreats bounds the ThreatStore.
const DefaultMaxThreats = 10000

// ThreatStore keeps threats in insertion order and remembers which source
// events have already been reported. Internally threats are appended; readers
// see them newest-inserted first.
type ThreatStore struct {
	mu       sync.RWMutex
	threats  []Threat
	reported map[string]struct{}
	maxSize  int
}

// NewThreatStore creates a store holding at most maxSize threats.
func NewThreatStore(maxSize int) *ThreatStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxThreats
	}
	return &ThreatStore{
		threats:  make([]Threat, 0, 64),
		reported: make(map[string]struct{}),
		maxSize:  maxSize,
	}
}

// Prepend inserts a threat at the head of the store. When the store is over
// capacity the oldest-inserted threat is dropped along with its event ID.
func (s *ThreatStore) Prepend(t Threat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.threats = append(s.threats, t)
	if t.EventID != "" {
		s.reported[t.EventID] = struct{}{}
	}

	if over := len(s.threats) - s.maxSize; over > 0 {
		for _, old := range s.threats[:over] {
			if old.EventID != "" {
				delete(s.reported, old.EventID)
			}
		}
		s.threats = append(s.threats[:0], s.threats[over:]...)
	}
}

// Reported returns true if a threat has already been raised for eventID.
func (s *ThreatStore) Reported(eventID string) bool {
	if eventID == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.reported[eventID]
	return ok
}

// Ordered returns all threats newest-inserted first.
func (s *ThreatStore) Ordered() []Threat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Threat, len(s.threats))
	for i, t := range s.threats {
		result[len(s.threats)-1-i] = t
	}
	return result
}

// ListSortedByTimestampDescending returns all threats ordered by Timestamp,
// most recent first. Ties keep insertion order (newest-inserted first).
func (s *ThreatStore) ListSortedByTimestampDescending() []Threat {
	result := s.Ordered()
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return result
}

// Count returns the number of stored threats.
func (s *ThreatStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threats)
}
