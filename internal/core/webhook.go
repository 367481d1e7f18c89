package core

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Webhook delivery outcomes.
const (
	DeliveryPending    = "pending"
	DeliveryDelivered  = "delivered"
	DeliveryDeadLetter = "dead_letter"
)

const maxDeadLetters = 500

// WebhookDelivery is one threat queued for one URL.
type WebhookDelivery struct {
	URL       string    `json:"url"`
	Threat    Threat    `json:"threat"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	Status    string    `json:"status"`
	FailedAt  time.Time `json:"failed_at,omitempty"`
}

// WebhookDispatcher posts threats to webhook URLs from a small worker pool,
// retrying 5xx, 429 and transport errors with exponential backoff. Deliveries
// that exhaust their retries are kept in a bounded dead-letter buffer.
type WebhookDispatcher struct {
	client     *http.Client
	urls       []string
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
	onResult   func(err error)
	logger     zerolog.Logger

	queue chan *WebhookDelivery

	dlMu       sync.RWMutex
	deadLetter []WebhookDelivery

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWebhookDispatcher starts cfg.WebhookWorkers workers. onResult, if set,
// is called once per delivery with its final error.
func NewWebhookDispatcher(cfg *AlertConfig, onResult func(err error), logger zerolog.Logger) *WebhookDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &WebhookDispatcher{
		client:     &http.Client{Timeout: 10 * time.Second},
		urls:       cfg.WebhookURLs,
		maxRetries: cfg.WebhookMaxRetries,
		backoff:    cfg.WebhookBackoff,
		maxBackoff: 30 * time.Second,
		onResult:   onResult,
		logger:     logger.With().Str("component", "webhook_dispatcher").Logger(),
		queue:      make(chan *WebhookDelivery, 256),
		ctx:        ctx,
		cancel:     cancel,
	}
	if d.backoff <= 0 {
		d.backoff = time.Second
	}

	workers := cfg.WebhookWorkers
	if workers <= 0 {
		workers = 2
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.logger.Info().Int("workers", workers).Int("urls", len(d.urls)).Msg("webhook dispatcher started")
	return d
}

// Enqueue schedules threat for every configured URL. It never blocks; a
// full queue dead-letters the delivery.
func (d *WebhookDispatcher) Enqueue(threat Threat) {
	for _, url := range d.urls {
		delivery := &WebhookDelivery{URL: url, Threat: threat, Status: DeliveryPending}
		select {
		case d.queue <- delivery:
		default:
			d.fail(delivery, fmt.Errorf("webhook queue full"))
		}
	}
}

// DeadLetters returns failed deliveries, oldest first.
func (d *WebhookDispatcher) DeadLetters() []WebhookDelivery {
	d.dlMu.RLock()
	defer d.dlMu.RUnlock()
	out := make([]WebhookDelivery, len(d.deadLetter))
	copy(out, d.deadLetter)
	return out
}

// Stop cancels in-flight retries and waits for the workers.
func (d *WebhookDispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
}

func (d *WebhookDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case delivery := <-d.queue:
			d.deliver(delivery)
		}
	}
}

func (d *WebhookDispatcher) deliver(delivery *WebhookDelivery) {
	data, err := delivery.Threat.Marshal()
	if err != nil {
		d.fail(delivery, fmt.Errorf("marshaling threat: %w", err))
		return
	}

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		delivery.Attempts = attempt + 1
		retry, err := d.post(delivery.URL, data)
		if err == nil {
			delivery.Status = DeliveryDelivered
			if d.onResult != nil {
				d.onResult(nil)
			}
			d.logger.Debug().Str("url", delivery.URL).Str("threat_id", delivery.Threat.ID).
				Int("attempts", delivery.Attempts).Msg("webhook delivered")
			return
		}
		lastErr = err
		if !retry || attempt == d.maxRetries || !d.wait(attempt) {
			break
		}
	}
	d.fail(delivery, lastErr)
}

// post sends one attempt and reports whether a failure is worth retrying.
func (d *WebhookDispatcher) post(url string, data []byte) (bool, error) {
	req, err := http.NewRequestWithContext(d.ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "casbguard-webhook/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("webhook delivery to %s: %w", url, err)
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("webhook %s returned status %d", url, resp.StatusCode)
	default:
		return false, fmt.Errorf("webhook %s returned status %d", url, resp.StatusCode)
	}
}

// wait sleeps backoff * 2^attempt, capped. It returns false if the
// dispatcher stopped first.
func (d *WebhookDispatcher) wait(attempt int) bool {
	delay := d.backoff << attempt
	if delay <= 0 || delay > d.maxBackoff {
		delay = d.maxBackoff
	}
	select {
	case <-time.After(delay):
		return true
	case <-d.ctx.Done():
		return false
	}
}

func (d *WebhookDispatcher) fail(delivery *WebhookDelivery, err error) {
	delivery.Status = DeliveryDeadLetter
	delivery.LastError = err.Error()
	delivery.FailedAt = time.Now().UTC()

	d.dlMu.Lock()
	if len(d.deadLetter) >= maxDeadLetters {
		d.deadLetter = d.deadLetter[maxDeadLetters/10:]
	}
	d.deadLetter = append(d.deadLetter, *delivery)
	d.dlMu.Unlock()

	if d.onResult != nil {
		d.onResult(err)
	}
	d.logger.Error().Err(err).Str("url", delivery.URL).Str("threat_id", delivery.Threat.ID).
		Int("attempts", delivery.Attempts).Msg("webhook moved to dead letter")
}
