package core

import (
	"sort"
	"sync"
)

// BehaviorProfile is the learned baseline for one user.
type BehaviorProfile struct {
	User         string `json:"user"`
	UsualCountry string `json:"usual_country"`
}

// BaselineModel holds one BehaviorProfile per known user. Profiles are never
// deleted; a removed user's profile simply stops being referenced.
type BaselineModel struct {
	mu       sync.RWMutex
	profiles map[string]BehaviorProfile
}

// NewBaselineModel creates an empty model.
func NewBaselineModel() *BaselineModel {
	return &BaselineModel{profiles: make(map[string]BehaviorProfile)}
}

// Register creates or overwrites the profile for user.
func (m *BaselineModel) Register(user, usualCountry string) {
	m.mu.Lock()
	m.profiles[user] = BehaviorProfile{User: user, UsualCountry: usualCountry}
	m.mu.Unlock()
}

// Lookup returns the profile for user, if any.
func (m *BaselineModel) Lookup(user string) (BehaviorProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[user]
	return p, ok
}

// Profiles returns all profiles sorted by user.
func (m *BaselineModel) Profiles() []BehaviorProfile {
	m.mu.RLock()
	result := make([]BehaviorProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		result = append(result, p)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].User < result[j].User })
	return result
}

// Len returns the number of profiles.
func (m *BaselineModel) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.profiles)
}
