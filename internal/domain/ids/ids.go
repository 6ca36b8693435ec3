// Package ids hands out entity identifiers.
//
// Each entity kind has its own counter. Counters start at 1, only ever
// increase and are never reset while the process runs, so an id is never
// reused even after the entity it named is deleted.
package ids

import "sync"

// Kind names an identifier space.
type Kind string

const (
	Patient      Kind = "patient"
	User         Kind = "user"
	Appointment  Kind = "appointment"
	Admission    Kind = "admission"
	Supply       Kind = "supply"
	Fee          Kind = "fee"
	Prescription Kind = "prescription"
	Medication   Kind = "medication"
	Treatment    Kind = "treatment"
	LabRequest   Kind = "lab_request"
	LabResult    Kind = "lab_result"
	LedgerEntry  Kind = "ledger_entry"
	Task         Kind = "task"
)

// Generator is a set of per-kind counters. The zero value is ready to use.
type Generator struct {
	mu       sync.Mutex
	counters map[Kind]int
}

func NewGenerator() *Generator {
	return &Generator{counters: make(map[Kind]int)}
}

// Next returns the next id for kind.
func (g *Generator) Next(kind Kind) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.counters == nil {
		g.counters = make(map[Kind]int)
	}
	g.counters[kind]++
	return g.counters[kind]
}

var std = NewGenerator()

// Next draws from the process-wide generator used by entity constructors.
func Next(kind Kind) int {
	return std.Next(kind)
}

// Reset zeroes the process-wide counters. It is only meant for process start
// and tests; calling it while entities are live breaks id uniqueness.
func Reset() {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.counters = make(map[Kind]int)
}
