package core

import "testing"

func TestBaselineModel_RegisterLookup(t *testing.T) {
	m := NewBaselineModel()
	if _, ok := m.Lookup("alice"); ok {
		t.Fatal("empty model should not find alice")
	}

	m.Register("alice", "India")
	p, ok := m.Lookup("alice")
	if !ok || p.UsualCountry != "India" || p.User != "alice" {
		t.Errorf("Lookup(alice) = %+v, %v", p, ok)
	}

	m.Register("alice", "USA")
	if p, _ := m.Lookup("alice"); p.UsualCountry != "USA" {
		t.Errorf("re-register should overwrite, got %q", p.UsualCountry)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestBaselineModel_ProfilesSorted(t *testing.T) {
	m := NewBaselineModel()
	m.Register("charlie", "India")
	m.Register("alice", "India")
	m.Register("bob", "USA")

	got := m.Profiles()
	if len(got) != 3 {
		t.Fatalf("Profiles() returned %d", len(got))
	}
	for i, want := range []string{"alice", "bob", "charlie"} {
		if got[i].User != want {
			t.Errorf("Profiles()[%d] = %q, want %q", i, got[i].User, want)
		}
	}
}

// ─── UserDirectory ───────────────────────────────────────────────────────────

func TestUserDirectory(t *testing.T) {
	d := NewUserDirectory()
	d.Add(User{ID: 1, Email: "a@example.com", Status: UserStatusActive})
	d.Add(User{ID: 2, Email: "b@example.com", Status: UserStatusInactive})

	if got := d.Emails(); !equalIDs(got, []string{"a@example.com", "b@example.com"}) {
		t.Errorf("Emails() = %v", got)
	}

	u, ok := d.ToggleStatus(1)
	if !ok || u.Status != UserStatusInactive {
		t.Errorf("ToggleStatus(1) = %+v, %v", u, ok)
	}
	u, _ = d.ToggleStatus(2)
	if u.Status != UserStatusActive {
		t.Errorf("ToggleStatus(2).Status = %q", u.Status)
	}
	if _, ok := d.ToggleStatus(99); ok {
		t.Error("ToggleStatus(99) should report not found")
	}

	if !d.Remove(1) {
		t.Error("Remove(1) should succeed")
	}
	if d.Remove(1) {
		t.Error("second Remove(1) should fail")
	}
	if d.Len() != 1 || d.List()[0].ID != 2 {
		t.Errorf("unexpected users after remove: %+v", d.List())
	}
}
