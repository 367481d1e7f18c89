package core

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTickInterval is the cadence of synthetic activity.
const DefaultTickInterval = 10 * time.Second

// Values used by the synthetic and simulated events.
const (
	SyntheticApp      = "Microsoft 365"
	SyntheticFile     = "document.xlsx"
	SyntheticLocation = "Bhopal, India"

	SimulatedUser     = "alice.jones@example.com"
	SimulatedIP       = "95.12.110.8"
	SimulatedLocation = "Frankfurt, Germany"
)

// Ticker delivers ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Picker selects an index in [0, n).
type Picker interface {
	IntN(n int) int
}

// UserLister provides the identifiers the scheduler picks from.
type UserLister interface {
	Emails() []string
}

// Ingester appends an event and runs detection over it. Detect runs a pass
// over the current window without appending.
type Ingester interface {
	Ingest(event ActivityEvent) []Threat
	Detect() []Threat
}

// Scheduler drives the pipeline with a benign synthetic event on every tick
// and exposes a manual path that injects a known anomalous login.
type Scheduler struct {
	ingester  Ingester
	users     UserLister
	interval  time.Duration
	newTicker TickerFactory
	picker    Picker
	now       func() time.Time
	logger    zerolog.Logger
}

// NewScheduler creates a scheduler. Nil factory, picker or clock fall back to
// real time and a randomly seeded PCG source.
func NewScheduler(ingester Ingester, users UserLister, interval time.Duration, newTicker TickerFactory, picker Picker, now func() time.Time, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if newTicker == nil {
		newTicker = NewRealTicker
	}
	if picker == nil {
		picker = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		ingester:  ingester,
		users:     users,
		interval:  interval,
		newTicker: newTicker,
		picker:    picker,
		now:       now,
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.newTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C():
			s.Tick()
		}
	}
}

// Tick synthesizes one File Access event for a random known user and ingests
// it. With no known users only a detection pass runs. It returns the event
// and whether one was appended.
func (s *Scheduler) Tick() (ActivityEvent, bool) {
	users := s.users.Emails()
	if len(users) == 0 {
		s.ingester.Detect()
		return ActivityEvent{}, false
	}

	user := users[s.picker.IntN(len(users))]
	event := NewActivityEvent(s.now(), user, ActionFileAccess, map[string]string{
		DetailApp:      SyntheticApp,
		DetailFile:     SyntheticFile,
		DetailLocation: SyntheticLocation,
	})
	s.ingester.Ingest(event)
	s.logger.Debug().Str("user", user).Str("event_id", event.ID).Msg("synthetic event ingested")
	return event, true
}

// TriggerAnomaly ingests the fixed anomalous login and returns it once
// detection has completed.
func (s *Scheduler) TriggerAnomaly() ActivityEvent {
	event := NewActivityEvent(s.now(), SimulatedUser, ActionLogin, map[string]string{
		DetailIP:       SimulatedIP,
		DetailLocation: SimulatedLocation,
	})
	threats := s.ingester.Ingest(event)
	s.logger.Info().Str("event_id", event.ID).Int("threats", len(threats)).Msg("anomaly simulated")
	return event
}
