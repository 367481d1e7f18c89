package core

import "time"

const seedThreatLayout = "2006-01-02 15:04:05"

// seedUsers are the managed accounts present at startup.
var seedUsers = []User{
	{ID: 101, Name: "Admin User", Email: "admin@casb-portal.com", Role: "Admin", Status: UserStatusActive, UsualCountry: "India"},
	{ID: 102, Name: "Alice Jones", Email: "alice.jones@example.com", Role: "User", Status: UserStatusActive, UsualCountry: "India"},
	{ID: 103, Name: "Bob Smith", Email: "bob.smith@example.com", Role: "User", Status: UserStatusInactive, UsualCountry: "USA"},
	{ID: 104, Name: "Charlie Brown", Email: "charlie.brown@example.com", Role: "User", Status: UserStatusActive, UsualCountry: "India"},
}

// seedEvents returns recent activity relative to now.
func seedEvents(now time.Time) []ActivityEvent {
	return []ActivityEvent{
		NewActivityEvent(now.Add(-5*time.Minute), "alice.jones@example.com", ActionLogin,
			map[string]string{DetailIP: "103.27.100.5", DetailLocation: "Bhopal, India"}),
		NewActivityEvent(now.Add(-4*time.Minute), "alice.jones@example.com", ActionFileUpload,
			map[string]string{DetailApp: "Google Drive", DetailFile: "project_report_final.docx"}),
		NewActivityEvent(now.Add(-3*time.Minute), "charlie.brown@example.com", ActionLogin,
			map[string]string{DetailIP: "103.27.101.21", DetailLocation: "Bhopal, India"}),
		NewActivityEvent(now.Add(-2*time.Minute), "bob.smith@example.com", ActionLogin,
			map[string]string{DetailIP: "203.0.113.5", DetailLocation: "New York, USA"}),
	}
}

// seedThreats returns historical threats, oldest first.
func seedThreats() []Threat {
	return []Threat{
		NewThreat(mustParseSeedTime("2025-09-02 10:30:45"), ThreatMalwareDetected, "eva.green@example.com",
			"203.0.113.5", "Malicious file upload to Asana", ThreatStatusRemediated),
		NewThreat(mustParseSeedTime("2025-09-02 13:05:11"), ThreatImpossibleTravel, "diana.prince@example.com",
			"198.51.100.2", "Login from new country", ThreatStatusBlocked),
	}
}

func mustParseSeedTime(s string) time.Time {
	t, err := time.ParseInLocation(seedThreatLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}
