package scheduling

import (
	"time"

	"github.com/ehr/clinic/internal/domain/ids"
	"github.com/ehr/clinic/internal/platform/apperr"
)

// Admission records a patient admitted under a doctor. Discharge removes it.
type Admission struct {
	id        int
	PatientID int
	DoctorID  int
	At        time.Time
}

func NewAdmission(patientID, doctorID int, at time.Time) (*Admission, error) {
	a := &Admission{PatientID: patientID, DoctorID: doctorID, At: at}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	a.id = ids.Next(ids.Admission)
	return a, nil
}

func (a *Admission) ID() int { return a.id }

func (a *Admission) Validate() error {
	if a.PatientID <= 0 {
		return apperr.Validation("Patient ID must be a positive integer")
	}
	if a.DoctorID <= 0 {
		return apperr.Validation("Doctor ID must be a positive integer")
	}
	if a.At.IsZero() {
		return apperr.Validation("Admission date is required")
	}
	return nil
}

func (a *Admission) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"id":         a.id,
		"patient_id": a.PatientID,
		"doctor_id":  a.DoctorID,
		"date":       a.At.Format(time.DateOnly),
		"time":       a.At.Format(time.TimeOnly),
	}
}
