package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/ehr/clinic/internal/domain/ids"
	"github.com/ehr/clinic/internal/platform/apperr"
)

// Status is an appointment's lifecycle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"
)

// ValidStatuses lists the accepted statuses in their canonical order.
var ValidStatuses = []Status{StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow}

// ParseStatus matches s case-insensitively against ValidStatuses.
func ParseStatus(s string) (Status, error) {
	v := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range ValidStatuses {
		if v == st {
			return st, nil
		}
	}
	return "", apperr.Validation("Status must be one of %v", ValidStatuses)
}

// Appointment books a patient with a doctor. The ids are only checked for
// shape here; the registry does not require them to exist.
type Appointment struct {
	id        int
	PatientID int
	DoctorID  int
	At        time.Time
	About     string
	status    Status
}

func NewAppointment(patientID, doctorID int, at time.Time, about string) (*Appointment, error) {
	a := &Appointment{
		PatientID: patientID,
		DoctorID:  doctorID,
		At:        at,
		About:     about,
		status:    StatusScheduled,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	a.id = ids.Next(ids.Appointment)
	return a, nil
}

func (a *Appointment) ID() int { return a.id }

func (a *Appointment) Status() Status { return a.status }

func (a *Appointment) Validate() error {
	if a.PatientID <= 0 {
		return apperr.Validation("Patient ID must be a positive integer")
	}
	if a.DoctorID <= 0 {
		return apperr.Validation("Doctor ID must be a positive integer")
	}
	if a.At.IsZero() {
		return apperr.Validation("Appointment date is required")
	}
	return nil
}

// IsActive reports whether the appointment is still scheduled.
func (a *Appointment) IsActive() bool { return a.status == StatusScheduled }

// Cancel fails only for a completed appointment.
func (a *Appointment) Cancel() error {
	if a.status == StatusCompleted {
		return apperr.Rule("Cannot cancel a completed appointment")
	}
	a.status = StatusCancelled
	return nil
}

// MarkCompleted fails for cancelled and no-show appointments.
func (a *Appointment) MarkCompleted() error {
	if a.status == StatusCancelled || a.status == StatusNoShow {
		return apperr.Rule("Cannot complete a %s appointment", a.status)
	}
	a.status = StatusCompleted
	return nil
}

// MarkNoShow succeeds only from scheduled.
func (a *Appointment) MarkNoShow() error {
	if a.status != StatusScheduled {
		return apperr.Rule("Only scheduled appointments can be marked as no-show")
	}
	a.status = StatusNoShow
	return nil
}

// UpdateStatus is the administrative override: any valid status is written
// regardless of the current one.
func (a *Appointment) UpdateStatus(value string) error {
	st, err := ParseStatus(value)
	if err != nil {
		return err
	}
	a.status = st
	return nil
}

// Transition applies the guarded transition named by action.
func (a *Appointment) Transition(action string) error {
	switch action {
	case "cancel":
		return a.Cancel()
	case "complete":
		return a.MarkCompleted()
	case "no-show", "no_show":
		return a.MarkNoShow()
	}
	return apperr.Validation("unknown appointment action: %s", action)
}

func (a *Appointment) ToMap() map[string]interface{} {
	var about interface{}
	if a.About != "" {
		about = a.About
	}
	return map[string]interface{}{
		"id":         a.id,
		"patient_id": a.PatientID,
		"doctor_id":  a.DoctorID,
		"date":       a.At.Format(time.DateOnly),
		"time":       a.At.Format(time.TimeOnly),
		"status":     string(a.status),
		"about":      about,
	}
}

func (a *Appointment) String() string {
	return fmt.Sprintf("appointment %d (%s) patient=%d doctor=%d at %s",
		a.id, a.status, a.PatientID, a.DoctorID, a.At.Format(time.DateTime))
}
