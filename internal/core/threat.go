package core

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ThreatType classifies a Threat.
type ThreatType string

const (
	ThreatImpossibleTravel     ThreatType = "Impossible Travel"
	ThreatMalwareDetected      ThreatType = "Malware Detected"
	ThreatUnusualLoginLocation ThreatType = "Unusual Login Location"
)

// ThreatStatus is the response state of a Threat.
type ThreatStatus string

const (
	ThreatStatusBlocked    ThreatStatus = "Blocked"
	ThreatStatusRemediated ThreatStatus = "Remediated"
	ThreatStatusAlerted    ThreatStatus = "Alerted"
)

// Threat is a detected or ingested security finding shown on the dashboard.
// EventID links a detector-raised threat to the ActivityEvent that caused it
// and is empty for seeded threats.
type Threat struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Type      ThreatType   `json:"type"`
	User      string       `json:"user"`
	IP        string       `json:"ip"`
	Details   string       `json:"details"`
	Status    ThreatStatus `json:"status"`
	EventID   string       `json:"event_id,omitempty"`
}

// NewThreat creates a Threat with a generated ID.
func NewThreat(ts time.Time, threatType ThreatType, user, ip, details string, status ThreatStatus) Threat {
	return Threat{
		ID:        uuid.New().String(),
		Timestamp: ts.UTC(),
		Type:      threatType,
		User:      user,
		IP:        ip,
		Details:   details,
		Status:    status,
	}
}

// Marshal serializes the threat to JSON.
func (t Threat) Marshal() ([]byte, error) {
	return json.Marshal(t)
}
