package core

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func testEvent(id, user string, action Action, details map[string]string) ActivityEvent {
	return ActivityEvent{
		ID:        id,
		Timestamp: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
		User:      user,
		Action:    action,
		Details:   details,
	}
}

func eventIDs(events []ActivityEvent) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// ─── NewEventStore ───────────────────────────────────────────────────────────

func TestNewEventStore_Empty(t *testing.T) {
	s := NewEventStore(5)
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if got := s.RecentWindow(10); len(got) != 0 {
		t.Errorf("RecentWindow on empty store returned %d events", len(got))
	}
	if got := s.All(); len(got) != 0 {
		t.Errorf("All on empty store returned %d events", len(got))
	}
}

func TestNewEventStore_DefaultCapacity(t *testing.T) {
	for _, c := range []int{0, -3} {
		if got := NewEventStore(c).Capacity(); got != DefaultEventCapacity {
			t.Errorf("NewEventStore(%d).Capacity() = %d, want %d", c, got, DefaultEventCapacity)
		}
	}
}

// ─── Append / RecentWindow ───────────────────────────────────────────────────

func TestEventStore_RecentWindow_Chronological(t *testing.T) {
	s := NewEventStore(10)
	for i := 1; i <= 5; i++ {
		s.Append(testEvent(fmt.Sprintf("e%d", i), "u", ActionFileAccess, nil))
	}

	if got := eventIDs(s.RecentWindow(3)); !equalIDs(got, []string{"e3", "e4", "e5"}) {
		t.Errorf("RecentWindow(3) = %v", got)
	}
	if got := eventIDs(s.RecentWindow(50)); !equalIDs(got, []string{"e1", "e2", "e3", "e4", "e5"}) {
		t.Errorf("RecentWindow(50) = %v", got)
	}
	for _, n := range []int{0, -1} {
		if got := s.RecentWindow(n); len(got) != 0 {
			t.Errorf("RecentWindow(%d) returned %d events", n, len(got))
		}
	}
}

func TestEventStore_EvictsFromHead(t *testing.T) {
	s := NewEventStore(3)
	var evictions int
	for i := 1; i <= 5; i++ {
		if s.Append(testEvent(fmt.Sprintf("e%d", i), "u", ActionFileAccess, nil)) {
			evictions++
		}
	}

	if evictions != 2 {
		t.Errorf("evictions = %d, want 2", evictions)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
	if got := eventIDs(s.RecentWindow(3)); !equalIDs(got, []string{"e3", "e4", "e5"}) {
		t.Errorf("RecentWindow(3) = %v", got)
	}
	if got := eventIDs(s.All()); !equalIDs(got, []string{"e5", "e4", "e3"}) {
		t.Errorf("All() = %v, want newest first", got)
	}
}

func TestEventStore_WrapAround_Window(t *testing.T) {
	s := NewEventStore(4)
	for i := 1; i <= 6; i++ {
		s.Append(testEvent(fmt.Sprintf("e%d", i), "u", ActionFileAccess, nil))
	}
	if got := eventIDs(s.RecentWindow(2)); !equalIDs(got, []string{"e5", "e6"}) {
		t.Errorf("RecentWindow(2) after wrap = %v", got)
	}
}

func TestEventStore_ReadsDoNotShareDetails(t *testing.T) {
	s := NewEventStore(2)
	details := map[string]string{DetailLocation: "Bhopal, India"}
	s.Append(testEvent("e1", "u", ActionLogin, details))

	details[DetailLocation] = "Frankfurt, Germany"
	got := s.RecentWindow(1)[0]
	if got.Detail(DetailLocation) != "Bhopal, India" {
		t.Errorf("store was mutated through caller map: %q", got.Detail(DetailLocation))
	}

	got.Details[DetailLocation] = "Paris, France"
	if s.All()[0].Detail(DetailLocation) != "Bhopal, India" {
		t.Error("store was mutated through returned event")
	}
}

// ─── Concurrency ─────────────────────────────────────────────────────────────

func TestEventStore_ConcurrentAppendAndRead(t *testing.T) {
	s := NewEventStore(50)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Append(testEvent(fmt.Sprintf("%d-%d", n, j), "u", ActionFileAccess, nil))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.RecentWindow(10)
				_ = s.All()
			}
		}()
	}
	wg.Wait()

	if s.Len() != 50 {
		t.Errorf("Len() = %d, want 50", s.Len())
	}
}
