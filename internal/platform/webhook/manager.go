// Package webhook posts clinic domain events to URLs registered by an
// administrator. Payloads are signed with HMAC-SHA256 under the endpoint's
// secret and every attempt is kept in a bounded delivery log.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/platform/events"
)

// TestEventType is sent by TestEndpoint and matches no subscription.
const TestEventType = "webhook.test"

// SignPayload returns the hex HMAC-SHA256 of payload under secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(SignPayload(payload, secret)), []byte(signature))
}

type Option func(*Manager)

func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithQueueSize bounds the number of events waiting for delivery.
func WithQueueSize(n int) Option {
	return func(m *Manager) { m.queueSize = n }
}

// Manager registers endpoints and delivers events to them. As an
// events.Publisher it queues events and delivers them from a background
// goroutine, dropping events when the queue is full.
type Manager struct {
	store     *Store
	client    *http.Client
	logger    zerolog.Logger
	queueSize int
	now       func() time.Time

	queue     chan events.Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewManager(store *Store, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    zerolog.Nop(),
		queueSize: 256,
		now:       time.Now,
		done:      make(chan struct{}),
	}
	for _, o := range opts {
		o(m)
	}
	m.queue = make(chan events.Event, m.queueSize)
	go m.run()
	return m
}

func (m *Manager) Store() *Store { return m.store }

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func validateURL(raw string) error {
	if raw == "" {
		return apperr.Validation("Webhook url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return apperr.Validation("Invalid webhook url: %s", raw)
	}
	if s := strings.ToLower(u.Scheme); s != "http" && s != "https" {
		return apperr.Validation("Webhook url scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

func validatePatterns(patterns []string) error {
	if len(patterns) == 0 {
		return apperr.Validation("At least one event pattern is required")
	}
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return apperr.Validation("Event patterns must be non-empty strings")
		}
	}
	return nil
}

// Register adds an active endpoint. An empty secret is replaced by a random
// one.
func (m *Manager) Register(rawURL, secret, description string, patterns []string) (*Endpoint, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	if err := validatePatterns(patterns); err != nil {
		return nil, err
	}
	if secret == "" {
		s, err := generateSecret()
		if err != nil {
			return nil, fmt.Errorf("generating webhook secret: %w", err)
		}
		secret = s
	}
	ep := &Endpoint{
		ID:          uuid.New().String(),
		URL:         rawURL,
		Secret:      secret,
		Events:      patterns,
		Description: description,
		Status:      StatusActive,
		CreatedAt:   m.now(),
	}
	m.store.add(ep)
	m.logger.Info().Str("endpoint_id", ep.ID).Str("url", ep.URL).Strs("events", patterns).Msg("webhook endpoint registered")
	return ep, nil
}

// Update replaces the url, patterns or status of an endpoint; empty values
// are left alone.
func (m *Manager) Update(id, rawURL string, patterns []string, status string) (*Endpoint, error) {
	if rawURL != "" {
		if err := validateURL(rawURL); err != nil {
			return nil, err
		}
	}
	if len(patterns) > 0 {
		if err := validatePatterns(patterns); err != nil {
			return nil, err
		}
	}
	if status != "" && status != StatusActive && status != StatusPaused {
		return nil, apperr.Validation("Invalid webhook status: %s", status)
	}
	return m.store.update(id, func(ep *Endpoint) error {
		if rawURL != "" {
			ep.URL = rawURL
		}
		if len(patterns) > 0 {
			ep.Events = patterns
		}
		if status != "" {
			ep.Status = status
		}
		return nil
	})
}

func (m *Manager) Remove(id string) error { return m.store.remove(id) }

// Matches reports whether eventType satisfies pattern. Patterns are exact
// ("fee.paid"), a family ("prescription.*"), an action ("*.deleted") or "*".
func Matches(pattern, eventType string) bool {
	switch {
	case pattern == "*" || pattern == eventType:
		return true
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(eventType, pattern[1:])
	case strings.HasSuffix(pattern, ".*"):
		return strings.HasPrefix(eventType, pattern[:len(pattern)-1])
	}
	return false
}

func subscribed(ep *Endpoint, eventType string) bool {
	for _, p := range ep.Events {
		if Matches(p, eventType) {
			return true
		}
	}
	return false
}

// Publish queues e for delivery without blocking.
func (m *Manager) Publish(e events.Event) {
	select {
	case m.queue <- e:
	default:
		m.logger.Warn().Str("event_type", e.Type).Msg("webhook queue full, dropping event")
	}
}

func (m *Manager) run() {
	defer close(m.done)
	for e := range m.queue {
		ctx, cancel := context.WithTimeout(context.Background(), m.client.Timeout+time.Second)
		m.Deliver(ctx, e)
		cancel()
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
// Publish must not be called after Close.
func (m *Manager) Close(ctx context.Context) error {
	var err error
	m.closeOnce.Do(func() {
		close(m.queue)
		select {
		case <-m.done:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	return err
}

// Deliver posts e to every active endpoint subscribed to its type.
func (m *Manager) Deliver(ctx context.Context, e events.Event) []*Delivery {
	var out []*Delivery
	for _, ep := range m.store.Endpoints() {
		if ep.Status != StatusActive || !subscribed(ep, e.Type) {
			continue
		}
		out = append(out, m.send(ctx, ep, e, 1))
	}
	return out
}

func (m *Manager) send(ctx context.Context, ep *Endpoint, e events.Event, attempt int) *Delivery {
	payload, err := json.Marshal(e)
	d := &Delivery{
		ID:         uuid.New().String(),
		EndpointID: ep.ID,
		EventType:  e.Type,
		EventID:    e.ID,
		Payload:    payload,
		Attempt:    attempt,
		CreatedAt:  m.now(),
	}
	defer func() {
		m.store.record(d)
		lvl := zerolog.DebugLevel
		if d.Status != "success" {
			lvl = zerolog.WarnLevel
		}
		m.logger.WithLevel(lvl).Str("error", d.Error).Str("endpoint_id", ep.ID).Str("event_type", e.Type).Int("status_code", d.StatusCode).Msg("webhook delivery")
	}()
	if err != nil {
		d.Status, d.Error = "failed", err.Error()
		return d
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(payload))
	if err != nil {
		d.Status, d.Error = "failed", err.Error()
		return d
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Clinic-Signature", "sha256="+SignPayload(payload, ep.Secret))
	req.Header.Set("X-Clinic-Event", e.Type)
	req.Header.Set("X-Clinic-Delivery", d.ID)

	start := time.Now()
	resp, err := m.client.Do(req)
	d.Duration = time.Since(start)
	if err != nil {
		d.Status, d.Error = "failed", err.Error()
		return d
	}
	defer resp.Body.Close()

	d.StatusCode = resp.StatusCode
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	d.ResponseBody = string(body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		d.Status = "success"
	} else {
		d.Status, d.Error = "failed", fmt.Sprintf("non-2xx response: %d", resp.StatusCode)
	}
	return d
}

// Retry re-sends the payload of an earlier delivery to its endpoint.
func (m *Manager) Retry(ctx context.Context, deliveryID string) (*Delivery, error) {
	prev, err := m.store.Delivery(deliveryID)
	if err != nil {
		return nil, err
	}
	ep, err := m.store.Endpoint(prev.EndpointID)
	if err != nil {
		return nil, err
	}
	var e events.Event
	if err := json.Unmarshal(prev.Payload, &e); err != nil {
		return nil, fmt.Errorf("decoding stored payload: %w", err)
	}
	return m.send(ctx, ep, e, prev.Attempt+1), nil
}

// TestEndpoint sends a synthetic event to one endpoint regardless of its
// subscriptions or status.
func (m *Manager) TestEndpoint(ctx context.Context, id string) (*Delivery, error) {
	ep, err := m.store.Endpoint(id)
	if err != nil {
		return nil, err
	}
	return m.send(ctx, ep, events.New(TestEventType, map[string]interface{}{"test": true}), 1), nil
}
