package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultDetectionWindow is how many trailing events a scan examines.
const DefaultDetectionWindow = 10

const locationSeparator = ", "

// Detector compares login locations in a window of recent events against the
// behavior baseline and raises one Unusual Login Location threat per
// offending event.
type Detector struct {
	baseline *BaselineModel
	threats  *ThreatStore
	metrics  *Metrics
	now      func() time.Time
	logger   zerolog.Logger
}

// NewDetector creates a detector that writes threats to threats.
func NewDetector(baseline *BaselineModel, threats *ThreatStore, metrics *Metrics, now func() time.Time, logger zerolog.Logger) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{
		baseline: baseline,
		threats:  threats,
		metrics:  metrics,
		now:      now,
		logger:   logger.With().Str("component", "detector").Logger(),
	}
}

// Scan evaluates window and prepends a threat for every login whose country
// differs from the user's baseline and that has not been reported before.
// It returns the threats raised by this pass, in window order. Events that
// cannot be evaluated are skipped.
func (d *Detector) Scan(window []ActivityEvent) []Threat {
	var raised []Threat
	for _, event := range window {
		profile, country, err := d.evaluate(event)
		if err != nil {
			d.skip(event, err)
			continue
		}
		if country == "" || country == profile.UsualCountry {
			continue
		}
		if d.threats.Reported(event.ID) {
			continue
		}

		threat := NewThreat(d.now(), ThreatUnusualLoginLocation, event.User, event.Detail(DetailIP),
			fmt.Sprintf("Behavior model: login from %s deviates from usual country %s (event %s at %s)",
				event.Detail(DetailLocation), profile.UsualCountry, event.ID, event.Timestamp.Format(time.RFC3339)),
			ThreatStatusAlerted)
		threat.EventID = event.ID

		d.threats.Prepend(threat)
		raised = append(raised, threat)
		if d.metrics != nil {
			d.metrics.ThreatsDetected.WithLabelValues(string(threat.Type)).Inc()
		}
		d.logger.Info().
			Str("threat_id", threat.ID).
			Str("user", threat.User).
			Str("ip", threat.IP).
			Str("event_id", event.ID).
			Str("country", country).
			Str("usual_country", profile.UsualCountry).
			Msg("anomaly detected")
	}

	if d.metrics != nil {
		d.metrics.DetectionPasses.Inc()
	}
	return raised
}

// evaluate returns the baseline profile and parsed country of a login event.
// Non-login events return an empty country and no error.
func (d *Detector) evaluate(event ActivityEvent) (BehaviorProfile, string, error) {
	if event.Action != ActionLogin {
		return BehaviorProfile{}, "", nil
	}
	location := event.Detail(DetailLocation)
	if location == "" {
		return BehaviorProfile{}, "", fmt.Errorf("login %s has no location: %w", event.ID, ErrMalformedEvent)
	}
	country, ok := parseCountry(location)
	if !ok {
		return BehaviorProfile{}, "", fmt.Errorf("login %s location %q: %w", event.ID, location, ErrMalformedEvent)
	}
	profile, ok := d.baseline.Lookup(event.User)
	if !ok {
		return BehaviorProfile{}, "", fmt.Errorf("login %s user %q: %w", event.ID, event.User, ErrUnknownUser)
	}
	return profile, country, nil
}

func (d *Detector) skip(event ActivityEvent, err error) {
	reason := "other"
	switch {
	case errors.Is(err, ErrMalformedEvent):
		reason = "malformed_event"
	case errors.Is(err, ErrUnknownUser):
		reason = "unknown_user"
	}
	if d.metrics != nil {
		d.metrics.DetectionSkipped.WithLabelValues(reason).Inc()
	}
	d.logger.Debug().Err(err).Str("event_id", event.ID).Str("user", event.User).Msg("event skipped")
}

// parseCountry returns the text after the last ", " in a "City, Country"
// location.
func parseCountry(location string) (string, bool) {
	idx := strings.LastIndex(location, locationSeparator)
	if idx < 0 {
		return "", false
	}
	country := strings.TrimSpace(location[idx+len(locationSeparator):])
	if country == "" {
		return "", false
	}
	return country, true
}
