package core

import "sync"

// DefaultEventCapacity is the rolling window kept by an EventStore.
const DefaultEventCapacity = 100

// EventStore is a fixed-size ring buffer of activity events. Once full, each
// Append overwrites the oldest event.
type EventStore struct {
	mu       sync.RWMutex
	entries  []ActivityEvent
	capacity int
	pos      int
	full     bool
}

// NewEventStore creates a store that holds up to capacity events.
func NewEventStore(capacity int) *EventStore {
	if capacity <= 0 {
		capacity = DefaultEventCapacity
	}
	return &EventStore{
		entries:  make([]ActivityEvent, capacity),
		capacity: capacity,
	}
}

// Append adds an event at the tail and reports whether the oldest event was
// evicted to make room.
func (s *EventStore) Append(event ActivityEvent) bool {
	event = event.clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := s.full
	s.entries[s.pos] = event
	s.pos = (s.pos + 1) % s.capacity
	if s.pos == 0 {
		s.full = true
	}
	return evicted
}

// RecentWindow returns the last n events in chronological order.
func (s *EventStore) RecentWindow(n int) []ActivityEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.windowLocked(n)
}

// All returns every stored event, newest first.
func (s *EventStore) All() []ActivityEvent {
	s.mu.RLock()
	events := s.windowLocked(s.lenLocked())
	s.mu.RUnlock()

	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events
}

func (s *EventStore) windowLocked(n int) []ActivityEvent {
	total := s.lenLocked()
	if n > total {
		n = total
	}
	if n <= 0 {
		return []ActivityEvent{}
	}

	result := make([]ActivityEvent, n)
	start := s.pos - n
	if start < 0 {
		start += s.capacity
	}
	for i := 0; i < n; i++ {
		result[i] = s.entries[(start+i)%s.capacity].clone()
	}
	return result
}

// Len returns the number of stored events.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lenLocked()
}

// Capacity returns the maximum number of events kept.
func (s *EventStore) Capacity() int {
	return s.capacity
}

func (s *EventStore) lenLocked() int {
	if s.full {
		return s.capacity
	}
	return s.pos
}
