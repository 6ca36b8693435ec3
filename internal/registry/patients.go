package registry

import (
	"strings"

	"github.com/ehr/clinic/internal/domain/identity"
	"github.com/ehr/clinic/internal/domain/scheduling"
	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/platform/events"
)

func (r *Registry) AddPatient(p *identity.Patient) error {
	return r.mutate("add_patient", func() ([]events.Event, error) {
		if err := addTo(r.patients, p, "patient"); err != nil {
			return nil, err
		}
		return one(events.New(events.PatientRegistered, map[string]interface{}{
			"patient_id": p.ID(),
			"name":       p.Name,
		})), nil
	})
}

// UpdatePatient replaces the stored patient, records included, with p. Use
// EditPatient to change a patient in place.
func (r *Registry) UpdatePatient(id int, p *identity.Patient) error {
	return r.mutate("update_patient", func() ([]events.Event, error) {
		return nil, updateIn(r.patients, id, p, "patient")
	})
}

// EditPatient applies fn to a clone of the stored patient and commits it if
// the edited patient validates. Records added concurrently are never lost.
func (r *Registry) EditPatient(id int, fn func(*identity.Patient) error) error {
	return r.mutate("edit_patient", func() ([]events.Event, error) {
		return nil, editIn(r.patients, id, "patient", (*identity.Patient).Clone, fn)
	})
}

// DeletePatient removes a patient who has no scheduled appointment and is not
// admitted. Completed, cancelled and no-show appointments keep their
// patient_id after the patient is gone.
func (r *Registry) DeletePatient(id int) error {
	return r.mutate("delete_patient", func() ([]events.Event, error) {
		if _, ok := r.patients[id]; !ok {
			return nil, apperr.NotFound("Patient not found")
		}
		for _, a := range r.appointments {
			if a.PatientID == id && a.Status() == scheduling.StatusScheduled {
				return nil, apperr.Conflict("Cannot delete a patient with scheduled appointments")
			}
		}
		for _, a := range r.admissions {
			if a.PatientID == id {
				return nil, apperr.Conflict("Cannot delete an admitted patient")
			}
		}
		delete(r.patients, id)
		return one(events.New(events.PatientDeleted, map[string]interface{}{"patient_id": id})), nil
	})
}

// GetPatient returns a clone of the stored patient.
func (r *Registry) GetPatient(id int) (*identity.Patient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// ViewPatient calls fn with the stored patient under the read lock. fn must
// not retain or modify it.
func (r *Registry) ViewPatient(id int, fn func(*identity.Patient)) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return apperr.NotFound("Patient not found")
	}
	fn(p)
	return nil
}

// WithPatient runs fn against the stored patient under the write lock. It is
// the only way to change a patient's owned records.
func (r *Registry) WithPatient(op string, id int, fn func(*identity.Patient) error) error {
	return r.mutate(op, func() ([]events.Event, error) {
		p, ok := r.patients[id]
		if !ok {
			return nil, apperr.NotFound("Patient not found")
		}
		return nil, fn(p)
	})
}

// Patients returns summaries of every patient, ordered by id.
func (r *Registry) Patients() []map[string]interface{} {
	return r.SearchPatients("")
}

// SearchPatients matches query case-insensitively against name and contact.
// An empty query matches everyone.
func (r *Registry) SearchPatients(query string) []map[string]interface{} {
	q := strings.ToLower(strings.TrimSpace(query))
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []map[string]interface{}{}
	for _, p := range sortedValues(r.patients) {
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Contact), q) {
			out = append(out, p.Summary())
		}
	}
	return out
}

// PatientRecord projects the full record of a patient.
func (r *Registry) PatientRecord(id int) (map[string]interface{}, error) {
	var m map[string]interface{}
	err := r.ViewPatient(id, func(p *identity.Patient) {
		m = p.ToMap(r.now())
	})
	return m, err
}
