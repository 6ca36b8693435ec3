// Package events carries clinic domain events out of the process.
//
// The registry hands events to a Publisher after its lock is released.
// Publishers must not block the caller: the Kafka publisher queues events
// and delivers them from its own goroutine.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the registry.
const (
	PatientRegistered     = "patient.registered"
	PatientDeleted        = "patient.deleted"
	AppointmentScheduled  = "appointment.scheduled"
	AppointmentStatus     = "appointment.status_changed"
	FeePaid               = "fee.paid"
	ExpenseRecorded       = "expense.recorded"
	PrescriptionSubmitted = "prescription.submitted"
	PrescriptionApproved  = "prescription.approved"
	PrescriptionRejected  = "prescription.rejected"
	PrescriptionDispensed = "prescription.dispensed"
	LabOrdered            = "lab.ordered"
	LabResultReturned     = "lab.result_returned"
)

type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

func New(eventType string, data map[string]interface{}) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

type Publisher interface {
	Publish(e Event)
}

// Fanout hands every event to each publisher in turn.
type Fanout []Publisher

func (f Fanout) Publish(e Event) {
	for _, p := range f {
		p.Publish(e)
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(Event) {}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types lists the recorded event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
