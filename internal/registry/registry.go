// Package registry is the clinic's in-memory system of record.
//
// A Registry owns every top-level collection (users, patients, appointments,
// supplies, admissions), the queue of approved prescriptions awaiting
// dispense and the ledger. All mutations run under a single mutex; each
// multi-entity transaction is one critical section, so callers never observe
// a half-applied change. Domain events are published after the lock is
// released.
package registry

import (
	"sync"
	"time"

	"github.com/ehr/clinic/internal/domain/billing"
	"github.com/ehr/clinic/internal/domain/identity"
	"github.com/ehr/clinic/internal/domain/inventory"
	"github.com/ehr/clinic/internal/domain/medication"
	"github.com/ehr/clinic/internal/domain/scheduling"
	"github.com/ehr/clinic/internal/platform/events"
	"github.com/rs/zerolog"
)

// Observer is told the outcome of every registry operation.
type Observer interface {
	ObserveOperation(op string, err error)
}

type Registry struct {
	mu sync.RWMutex

	users        map[int]*identity.User
	patients     map[int]*identity.Patient
	appointments map[int]*scheduling.Appointment
	supplies     map[int]*inventory.Supply
	admissions   map[int]*scheduling.Admission

	dispenseQueue []*medication.Prescription
	ledger        billing.Ledger

	selector  Selector
	publisher events.Publisher
	observer  Observer
	logger    zerolog.Logger
	now       func() time.Time
}

type Option func(*Registry)

func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.logger = l.With().Str("component", "registry").Logger() }
}

func WithSelector(s Selector) Option {
	return func(r *Registry) { r.selector = s }
}

func WithPublisher(p events.Publisher) Option {
	return func(r *Registry) { r.publisher = p }
}

func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// WithClock overrides the time source used for "today" and "now".
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func New(opts ...Option) *Registry {
	r := &Registry{
		users:        make(map[int]*identity.User),
		patients:     make(map[int]*identity.Patient),
		appointments: make(map[int]*scheduling.Appointment),
		supplies:     make(map[int]*inventory.Supply),
		admissions:   make(map[int]*scheduling.Admission),
		selector:     NewRandomSelector(0),
		publisher:    events.Nop{},
		logger:       zerolog.Nop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now is the registry's clock.
func (r *Registry) Now() time.Time { return r.now() }

// mutate runs fn under the write lock, then reports the outcome and
// publishes the events fn produced if it succeeded.
func (r *Registry) mutate(op string, fn func() ([]events.Event, error)) error {
	evs, err := r.locked(fn)
	r.finish(op, err)
	if err == nil {
		for _, e := range evs {
			r.publisher.Publish(e)
		}
	}
	return err
}

func (r *Registry) locked(fn func() ([]events.Event, error)) ([]events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn()
}

func (r *Registry) finish(op string, err error) {
	if r.observer != nil {
		r.observer.ObserveOperation(op, err)
	}
	if err != nil {
		r.logger.Debug().Str("op", op).Err(err).Msg("operation rejected")
		return
	}
	if transactions[op] {
		r.logger.Info().Str("op", op).Msg("transaction committed")
		return
	}
	r.logger.Debug().Str("op", op).Msg("operation applied")
}

var transactions = map[string]bool{
	"pay_fee":               true,
	"verify_prescription":   true,
	"order_lab_test":        true,
	"approve_prescription":  true,
	"reject_prescription":   true,
	"dispense_prescription": true,
	"return_lab_result":     true,
	"record_expense":        true,
}

func one(e events.Event) []events.Event { return []events.Event{e} }
