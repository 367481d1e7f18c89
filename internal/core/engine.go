package core

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ThreatHandler receives every threat raised by the detector.
type ThreatHandler func(threat Threat)

// Engine is the service object that owns the event store, the baseline model
// and the threat store, and serializes the append-then-detect pipeline.
type Engine struct {
	Config    *Config
	Events    *EventStore
	Baseline  *BaselineModel
	Threats   *ThreatStore
	Users     *UserDirectory
	Detector  *Detector
	Scheduler *Scheduler
	Metrics   *Metrics
	Bus       *EventBus
	Logger    zerolog.Logger

	// mu makes append, scan and prepend one atomic unit so the dedup check
	// and the emit observe the same threat store state.
	mu sync.Mutex

	handlersMu sync.RWMutex
	handlers   []ThreatHandler

	kafka      *KafkaSink
	webhooks   *WebhookDispatcher
	configPath string
	now        func() time.Time
	newTicker  TickerFactory
	picker     Picker
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger replaces the logger built from the config.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.Logger = logger }
}

// WithClock replaces time.Now for event and threat timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTickerFactory replaces the scheduler's real ticker.
func WithTickerFactory(f TickerFactory) Option {
	return func(e *Engine) { e.newTicker = f }
}

// WithPicker replaces the scheduler's random user selection.
func WithPicker(p Picker) Option {
	return func(e *Engine) { e.picker = p }
}

func withKafkaSink(k *KafkaSink) Option {
	return func(e *Engine) { e.kafka = k }
}

// NewEngine builds an engine from cfg. When cfg.Detection.Seed is set the
// stores are populated with the demo users, events and threats.
func NewEngine(cfg *Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		Config:   cfg,
		Events:   NewEventStore(cfg.Detection.EventCapacity),
		Baseline: NewBaselineModel(),
		Threats:  NewThreatStore(cfg.Alerts.MaxStore),
		Users:    NewUserDirectory(),
		Metrics:  NewMetrics(),
		Logger:   newLogger(cfg),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.Detector = NewDetector(e.Baseline, e.Threats, e.Metrics, e.now, e.Logger)
	e.Scheduler = NewScheduler(e, e.Users, cfg.Detection.Interval, e.newTicker, e.picker, e.now, e.Logger)
	e.Logger = e.Logger.With().Str("component", "engine").Logger()

	if cfg.Alerts.EnableConsole {
		e.AddThreatHandler(func(t Threat) {
			e.Logger.Warn().
				Str("threat_id", t.ID).
				Str("type", string(t.Type)).
				Str("user", t.User).
				Str("ip", t.IP).
				Str("details", t.Details).
				Msg("THREAT DETECTED")
		})
	}
	if cfg.Detection.Seed {
		e.seed()
	}
	return e, nil
}

func newLogger(cfg *Config) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.Logging.Format == "json" {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}

	switch cfg.LogLevel() {
	case "debug":
		return logger.Level(zerolog.DebugLevel)
	case "warn":
		return logger.Level(zerolog.WarnLevel)
	case "error":
		return logger.Level(zerolog.ErrorLevel)
	default:
		return logger.Level(zerolog.InfoLevel)
	}
}

func (e *Engine) seed() {
	for _, u := range seedUsers {
		e.Users.Add(u)
		e.Baseline.Register(u.Email, u.UsualCountry)
	}
	for _, ev := range seedEvents(e.now()) {
		e.Events.Append(ev)
	}
	for _, t := range seedThreats() {
		e.Threats.Prepend(t)
	}
	e.Metrics.EventStoreSize.Set(float64(e.Events.Len()))
}

// AddThreatHandler registers fn to be called for every raised threat.
func (e *Engine) AddThreatHandler(fn ThreatHandler) {
	e.handlersMu.Lock()
	e.handlers = append(e.handlers, fn)
	e.handlersMu.Unlock()
}

// Ingest appends event to the store, runs a detection pass over the trailing
// window and returns the threats that pass raised. A missing ID or timestamp
// is filled in.
func (e *Engine) Ingest(event ActivityEvent) []Threat {
	event = e.Stamp(event)

	e.mu.Lock()
	if e.Events.Append(event) {
		e.Metrics.EventsEvicted.Inc()
	}
	e.Metrics.EventsAppended.WithLabelValues(string(event.Action)).Inc()
	e.Metrics.EventStoreSize.Set(float64(e.Events.Len()))
	threats := e.Detector.Scan(e.Events.RecentWindow(e.Config.Detection.Window))
	e.mu.Unlock()

	if e.Bus.IsConnected() {
		if err := e.Bus.PublishEvent(event); err != nil {
			e.Logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to publish event to bus")
		}
	}
	e.dispatch(threats)
	return threats
}

// Submit ingests an event from an external producer. Its ID is always
// assigned here, since event IDs key threat dedup. It returns the stored
// event and the threats raised.
func (e *Engine) Submit(event ActivityEvent) (ActivityEvent, []Threat) {
	event.ID = uuid.New().String()
	event = e.Stamp(event)
	return event, e.Ingest(event)
}

// Stamp fills in a missing ID and timestamp.
func (e *Engine) Stamp(event ActivityEvent) ActivityEvent {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now().UTC()
	}
	return event
}

// Detect runs a detection pass over the current window without appending.
func (e *Engine) Detect() []Threat {
	e.mu.Lock()
	threats := e.Detector.Scan(e.Events.RecentWindow(e.Config.Detection.Window))
	e.mu.Unlock()

	e.dispatch(threats)
	return threats
}

// SimulateAnomaly injects the fixed anomalous login and runs detection
// synchronously.
func (e *Engine) SimulateAnomaly() ActivityEvent {
	return e.Scheduler.TriggerAnomaly()
}

// ValidateEvent checks the fields an externally supplied event must carry.
func ValidateEvent(event ActivityEvent) error {
	if event.User == "" {
		return fmt.Errorf("user is required: %w", ErrInvalidEvent)
	}
	if event.Action == "" {
		return fmt.Errorf("action is required: %w", ErrInvalidEvent)
	}
	return nil
}

// RegisterUser adds a user to the directory and records its baseline. An
// empty country falls back to detection.default_country.
func (e *Engine) RegisterUser(name, email, role, usualCountry string) User {
	if usualCountry == "" {
		e.mu.Lock()
		usualCountry = e.Config.Detection.DefaultCountry
		e.mu.Unlock()
	}
	u := User{
		ID:           e.now().UnixMilli(),
		Name:         name,
		Email:        email,
		Role:         role,
		Status:       UserStatusActive,
		UsualCountry: usualCountry,
	}
	e.Users.Add(u)
	e.Baseline.Register(u.Email, u.UsualCountry)
	e.Logger.Info().Int64("user_id", u.ID).Str("email", u.Email).Str("usual_country", usualCountry).Msg("user registered")
	return u
}

// RemoveUser deletes a user from the directory. Its baseline profile is left
// in place.
func (e *Engine) RemoveUser(id int64) bool {
	return e.Users.Remove(id)
}

// Start connects the optional sinks and starts the scheduler.
func (e *Engine) Start() error {
	e.Logger.Info().Msg("starting casbguard engine")

	if e.Config.Bus.Enabled {
		bus, err := NewEventBus(&e.Config.Bus, e.Logger)
		if err != nil {
			return fmt.Errorf("starting event bus: %w", err)
		}
		e.Bus = bus
		e.AddThreatHandler(func(t Threat) {
			err := e.Bus.PublishThreat(t)
			e.recordPublish("nats", err)
			if err != nil {
				e.Logger.Error().Err(err).Str("threat_id", t.ID).Msg("failed to publish threat to bus")
			}
		})
		if err := e.Bus.SubscribeToIngest(e.ingestExternal); err != nil {
			return fmt.Errorf("subscribing to ingest: %w", err)
		}
	}

	if e.kafka == nil && e.Config.KafkaEnabled() {
		e.kafka = NewKafkaSink(&e.Config.Kafka)
		e.Logger.Info().Strs("brokers", e.Config.Kafka.Brokers).Str("topic", e.Config.Kafka.Topic).Msg("kafka threat export enabled")
	}
	if e.kafka != nil {
		// Sends outlive engine cancellation so Shutdown can drain them.
		sendCtx := context.WithoutCancel(e.ctx)
		e.AddThreatHandler(func(t Threat) {
			e.kafka.SendAsync(sendCtx, t, func(err error) {
				e.recordPublish("kafka", err)
				if err != nil {
					e.Logger.Error().Err(err).Str("threat_id", t.ID).Msg("failed to export threat to kafka")
				}
			})
		})
	}

	if len(e.Config.Alerts.WebhookURLs) > 0 {
		e.webhooks = NewWebhookDispatcher(&e.Config.Alerts, func(err error) {
			e.recordPublish("webhook", err)
		}, e.Logger)
		e.AddThreatHandler(e.webhooks.Enqueue)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.Scheduler.Run(e.ctx)
	}()

	e.Logger.Info().
		Int("event_capacity", e.Events.Capacity()).
		Int("window", e.Config.Detection.Window).
		Int("profiles", e.Baseline.Len()).
		Msg("casbguard engine started")
	return nil
}

// Shutdown stops the scheduler and closes the sinks.
func (e *Engine) Shutdown() error {
	e.Logger.Info().Msg("shutting down casbguard engine")
	e.cancel()
	e.wg.Wait()

	if e.webhooks != nil {
		e.webhooks.Stop()
	}
	if e.Bus != nil {
		if err := e.Bus.Close(); err != nil {
			e.Logger.Error().Err(err).Msg("error closing event bus")
		}
	}
	if e.kafka != nil {
		if err := e.kafka.Close(); err != nil {
			e.Logger.Error().Err(err).Msg("error closing kafka writer")
		}
	}

	e.Logger.Info().Msg("casbguard engine stopped")
	return nil
}

// DeadLetters returns webhook deliveries that exhausted their retries.
func (e *Engine) DeadLetters() []WebhookDelivery {
	if e.webhooks == nil {
		return []WebhookDelivery{}
	}
	return e.webhooks.DeadLetters()
}

func (e *Engine) ingestExternal(event ActivityEvent) {
	if err := ValidateEvent(event); err != nil {
		e.Logger.Warn().Err(err).Str("event_id", event.ID).Msg("dropping ingested event")
		return
	}
	e.Submit(event)
}

func (e *Engine) dispatch(threats []Threat) {
	if len(threats) == 0 {
		return
	}
	e.handlersMu.RLock()
	handlers := make([]ThreatHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.handlersMu.RUnlock()

	for _, t := range threats {
		for _, h := range handlers {
			h(t)
		}
	}
}

func (e *Engine) recordPublish(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	e.Metrics.ThreatsPublished.WithLabelValues(sink, result).Inc()
}
