package webhook

import (
	"slices"
	"sync"
	"time"

	"github.com/ehr/clinic/internal/platform/apperr"
)

const (
	StatusActive = "active"
	StatusPaused = "paused"
)

// Endpoint is a URL subscribed to clinic events.
type Endpoint struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Secret      string    `json:"secret,omitempty"`
	Events      []string  `json:"events"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Delivery records one attempt to post an event to an endpoint.
type Delivery struct {
	ID           string        `json:"id"`
	EndpointID   string        `json:"endpoint_id"`
	EventType    string        `json:"event_type"`
	EventID      string        `json:"event_id"`
	Payload      []byte        `json:"payload"`
	StatusCode   int           `json:"status_code"`
	ResponseBody string        `json:"response_body"`
	Duration     time.Duration `json:"duration_ns"`
	Attempt      int           `json:"attempt"`
	Status       string        `json:"status"` // success, failed
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Store keeps endpoints and their delivery log in memory, in insertion
// order. Returned values are copies.
type Store struct {
	mu         sync.RWMutex
	endpoints  []*Endpoint
	deliveries []*Delivery
	maxLog     int
}

// NewStore keeps at most maxLog deliveries; older ones are dropped first.
func NewStore(maxLog int) *Store {
	if maxLog <= 0 {
		maxLog = 1000
	}
	return &Store{maxLog: maxLog}
}

func (s *Store) add(ep *Endpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ep
	s.endpoints = append(s.endpoints, &cp)
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.endpoints, func(ep *Endpoint) bool { return ep.ID == id })
}

func (s *Store) Endpoint(id string) (*Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, apperr.NotFound("Webhook endpoint not found")
	}
	cp := *s.endpoints[i]
	return &cp, nil
}

func (s *Store) Endpoints() []*Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Endpoint, 0, len(s.endpoints))
	for _, ep := range s.endpoints {
		cp := *ep
		out = append(out, &cp)
	}
	return out
}

// update applies fn to the stored endpoint.
func (s *Store) update(id string, fn func(*Endpoint) error) (*Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, apperr.NotFound("Webhook endpoint not found")
	}
	cp := *s.endpoints[i]
	if err := fn(&cp); err != nil {
		return nil, err
	}
	s.endpoints[i] = &cp
	out := cp
	return &out, nil
}

func (s *Store) remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return apperr.NotFound("Webhook endpoint not found")
	}
	s.endpoints = slices.Delete(s.endpoints, i, i+1)
	return nil
}

func (s *Store) record(d *Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.deliveries = append(s.deliveries, &cp)
	if over := len(s.deliveries) - s.maxLog; over > 0 {
		s.deliveries = slices.Delete(s.deliveries, 0, over)
	}
}

func (s *Store) Delivery(id string) (*Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.deliveries {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("Delivery not found")
}

// Deliveries lists the attempts for one endpoint, oldest first.
func (s *Store) Deliveries(endpointID string) []*Delivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*Delivery{}
	for _, d := range s.deliveries {
		if d.EndpointID == endpointID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out
}
