package core

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Action is the kind of user activity recorded in an ActivityEvent.
type Action string

const (
	ActionLogin      Action = "Login"
	ActionFileUpload Action = "File Upload"
	ActionFileAccess Action = "File Access"
)

// Detail keys carried by login events.
const (
	DetailIP       = "ip"
	DetailLocation = "location"
	DetailApp      = "app"
	DetailFile     = "file"
)

// ActivityEvent is a single user action observed by the dashboard.
type ActivityEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	User      string            `json:"user"`
	Action    Action            `json:"action"`
	Details   map[string]string `json:"details,omitempty"`
}

// NewActivityEvent creates an ActivityEvent with a generated ID.
func NewActivityEvent(ts time.Time, user string, action Action, details map[string]string) ActivityEvent {
	return ActivityEvent{
		ID:        uuid.New().String(),
		Timestamp: ts.UTC(),
		User:      user,
		Action:    action,
		Details:   details,
	}
}

// Detail returns a details value, or "" when absent.
func (e ActivityEvent) Detail(key string) string {
	if e.Details == nil {
		return ""
	}
	return e.Details[key]
}

// clone returns a copy whose Details map is not shared with the caller.
func (e ActivityEvent) clone() ActivityEvent {
	if e.Details == nil {
		return e
	}
	details := make(map[string]string, len(e.Details))
	for k, v := range e.Details {
		details[k] = v
	}
	e.Details = details
	return e
}

// Marshal serializes the event to JSON.
func (e ActivityEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalActivityEvent deserializes an ActivityEvent from JSON.
func UnmarshalActivityEvent(data []byte) (ActivityEvent, error) {
	var event ActivityEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return ActivityEvent{}, err
	}
	return event, nil
}
