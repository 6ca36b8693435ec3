package registry

import (
	"sort"
	"time"

	"github.com/ehr/clinic/internal/domain/scheduling"
	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/platform/events"
)

// -- Appointments --

func (r *Registry) AddAppointment(a *scheduling.Appointment) error {
	return r.mutate("add_appointment", func() ([]events.Event, error) {
		if err := addTo(r.appointments, a, "appointment"); err != nil {
			return nil, err
		}
		return one(events.New(events.AppointmentScheduled, a.ToMap())), nil
	})
}

func (r *Registry) UpdateAppointment(id int, a *scheduling.Appointment) error {
	return r.mutate("update_appointment", func() ([]events.Event, error) {
		return nil, updateIn(r.appointments, id, a, "appointment")
	})
}

// EditAppointment applies fn to a copy of the stored appointment. fn cannot
// change the status; that goes through TransitionAppointment or
// SetAppointmentStatus.
func (r *Registry) EditAppointment(id int, fn func(*scheduling.Appointment) error) error {
	return r.mutate("edit_appointment", func() ([]events.Event, error) {
		return nil, editIn(r.appointments, id, "appointment", copyOf[scheduling.Appointment], fn)
	})
}

func (r *Registry) DeleteAppointment(id int) error {
	return r.mutate("delete_appointment", func() ([]events.Event, error) {
		return nil, deleteFrom(r.appointments, id, "appointment")
	})
}

// GetAppointment returns a copy of the stored appointment.
func (r *Registry) GetAppointment(id int) (*scheduling.Appointment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, false
	}
	cp := *a
	return &cp, true
}

// TransitionAppointment applies a guarded status change (cancel, complete,
// no-show).
func (r *Registry) TransitionAppointment(id int, action string) error {
	return r.changeStatus("transition_appointment", id, func(a *scheduling.Appointment) error {
		return a.Transition(action)
	})
}

// SetAppointmentStatus is the administrative override.
func (r *Registry) SetAppointmentStatus(id int, status string) error {
	return r.changeStatus("set_appointment_status", id, func(a *scheduling.Appointment) error {
		return a.UpdateStatus(status)
	})
}

func (r *Registry) changeStatus(op string, id int, fn func(*scheduling.Appointment) error) error {
	return r.mutate(op, func() ([]events.Event, error) {
		a, ok := r.appointments[id]
		if !ok {
			return nil, apperr.NotFound("Appointment not found")
		}
		from := a.Status()
		if err := fn(a); err != nil {
			return nil, err
		}
		return one(events.New(events.AppointmentStatus, map[string]interface{}{
			"appointment_id": id,
			"from":           string(from),
			"to":             string(a.Status()),
		})), nil
	})
}

// Appointments projects the appointments matching keep, ordered by time.
func (r *Registry) Appointments(keep func(*scheduling.Appointment) bool) []map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*scheduling.Appointment
	for _, a := range r.appointments {
		if keep == nil || keep(a) {
			list = append(list, a)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].At.Equal(list[j].At) {
			return list[i].At.Before(list[j].At)
		}
		return list[i].ID() < list[j].ID()
	})
	out := make([]map[string]interface{}, 0, len(list))
	for _, a := range list {
		out = append(out, a.ToMap())
	}
	return out
}

func ForDoctor(doctorID int) func(*scheduling.Appointment) bool {
	return func(a *scheduling.Appointment) bool { return a.DoctorID == doctorID }
}

func ForPatient(patientID int) func(*scheduling.Appointment) bool {
	return func(a *scheduling.Appointment) bool { return a.PatientID == patientID }
}

// UpcomingAppointments lists scheduled appointments from today onwards.
func (r *Registry) UpcomingAppointments() []map[string]interface{} {
	today := startOfDay(r.now())
	return r.Appointments(func(a *scheduling.Appointment) bool {
		return a.IsActive() && !a.At.Before(today)
	})
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// -- Admissions --

// AdmitPatient stores an admission for an existing patient under an existing
// doctor. A patient can only hold one admission at a time.
func (r *Registry) AdmitPatient(a *scheduling.Admission) error {
	return r.mutate("admit_patient", func() ([]events.Event, error) {
		if a == nil {
			return nil, apperr.Validation("Invalid admission object")
		}
		if _, ok := r.patients[a.PatientID]; !ok {
			return nil, apperr.NotFound("Patient not found")
		}
		if _, _, ok := r.doctor(a.DoctorID); !ok {
			return nil, apperr.NotFound("Doctor not found")
		}
		for _, other := range r.admissions {
			if other.PatientID == a.PatientID {
				return nil, apperr.Conflict("Patient is already admitted")
			}
		}
		return nil, addTo(r.admissions, a, "admission")
	})
}

func (r *Registry) AddAdmission(a *scheduling.Admission) error {
	return r.mutate("add_admission", func() ([]events.Event, error) {
		return nil, addTo(r.admissions, a, "admission")
	})
}

func (r *Registry) UpdateAdmission(id int, a *scheduling.Admission) error {
	return r.mutate("update_admission", func() ([]events.Event, error) {
		return nil, updateIn(r.admissions, id, a, "admission")
	})
}

func (r *Registry) DeleteAdmission(id int) error {
	return r.mutate("delete_admission", func() ([]events.Event, error) {
		return nil, deleteFrom(r.admissions, id, "admission")
	})
}

func (r *Registry) GetAdmission(id int) (*scheduling.Admission, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.admissions[id]
	if !ok {
		return nil, false
	}
	cp := *a
	return &cp, true
}

// DischargePatient removes every admission held by the patient.
func (r *Registry) DischargePatient(patientID int) error {
	return r.mutate("discharge_patient", func() ([]events.Event, error) {
		found := false
		for id, a := range r.admissions {
			if a.PatientID == patientID {
				delete(r.admissions, id)
				found = true
			}
		}
		if !found {
			return nil, apperr.NotFound("Patient is not admitted")
		}
		return nil, nil
	})
}

func (r *Registry) Admissions() []map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []map[string]interface{}{}
	for _, a := range sortedValues(r.admissions) {
		out = append(out, a.ToMap())
	}
	return out
}
