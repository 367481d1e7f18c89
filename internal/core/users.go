package core

import "sync"

// User status values.
const (
	UserStatusActive   = "Active"
	UserStatusInactive = "Inactive"
)

// User is a managed account shown on the dashboard.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Status       string `json:"status"`
	UsualCountry string `json:"usual_country"`
}

// UserDirectory is the ordered list of managed users. The behavior baseline
// is keyed by User.Email.
type UserDirectory struct {
	mu    sync.RWMutex
	users []User
}

// NewUserDirectory creates an empty directory.
func NewUserDirectory() *UserDirectory {
	return &UserDirectory{users: make([]User, 0)}
}

// Add appends a user.
func (d *UserDirectory) Add(u User) {
	d.mu.Lock()
	d.users = append(d.users, u)
	d.mu.Unlock()
}

// List returns a copy of all users in insertion order.
func (d *UserDirectory) List() []User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	result := make([]User, len(d.users))
	copy(result, d.users)
	return result
}

// Emails returns the identifiers of all known users, in insertion order.
func (d *UserDirectory) Emails() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	result := make([]string, len(d.users))
	for i, u := range d.users {
		result[i] = u.Email
	}
	return result
}

// ToggleStatus flips a user between Active and Inactive.
func (d *UserDirectory) ToggleStatus(id int64) (User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.users {
		if d.users[i].ID != id {
			continue
		}
		if d.users[i].Status == UserStatusActive {
			d.users[i].Status = UserStatusInactive
		} else {
			d.users[i].Status = UserStatusActive
		}
		return d.users[i], true
	}
	return User{}, false
}

// Remove deletes the user with the given ID.
func (d *UserDirectory) Remove(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.users {
		if d.users[i].ID == id {
			d.users = append(d.users[:i], d.users[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of users.
func (d *UserDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}
