package roles

import (
	"time"

	"github.com/ehr/clinic/internal/domain/clinical"
	"github.com/ehr/clinic/internal/domain/diagnostics"
	"github.com/ehr/clinic/internal/domain/identity"
	"github.com/ehr/clinic/internal/domain/medication"
	"github.com/ehr/clinic/internal/domain/scheduling"
	"github.com/ehr/clinic/internal/registry"
)

type Doctor struct {
	Staff
}

func (s *Service) Doctor(userID int) (*Doctor, error) {
	st, err := s.staff(userID, identity.RoleDoctor)
	if err != nil {
		return nil, err
	}
	return &Doctor{Staff: st}, nil
}

// ScheduleAppointment books the patient with this doctor.
func (d *Doctor) ScheduleAppointment(patientID int, at time.Time, about string) (*scheduling.Appointment, error) {
	a, err := scheduling.NewAppointment(patientID, d.id, at, about)
	if err != nil {
		return nil, err
	}
	out := snapshot(a)
	if err := d.reg.AddAppointment(a); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Doctor) Appointments() []map[string]interface{} {
	return d.reg.Appointments(registry.ForDoctor(d.id))
}

// Prescribe issues a prescription and sends it for verification. It returns
// the prescription and the pharmacist it was routed to.
func (d *Doctor) Prescribe(patientID int, med, dosage string, amount float64) (*medication.Prescription, int, error) {
	rx, err := medication.NewPrescription(patientID, d.id, med, dosage, amount, d.reg.Now())
	if err != nil {
		return nil, 0, err
	}
	out := snapshot(rx)
	pharmacistID, err := d.reg.VerifyPrescription(rx)
	if err != nil {
		return nil, 0, err
	}
	return out, pharmacistID, nil
}

func (d *Doctor) InvalidPrescriptions() ([]map[string]interface{}, error) {
	return d.reg.InvalidPrescriptions(d.id)
}

// Admit admits a patient under this doctor.
func (d *Doctor) Admit(patientID int, at time.Time) (*scheduling.Admission, error) {
	a, err := scheduling.NewAdmission(patientID, d.id, at)
	if err != nil {
		return nil, err
	}
	out := snapshot(a)
	if err := d.reg.AdmitPatient(a); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Doctor) Discharge(patientID int) error {
	if err := positive(patientID, "Patient"); err != nil {
		return err
	}
	return d.reg.DischargePatient(patientID)
}

func (d *Doctor) AddMedication(patientID int, course clinical.Course, endDate time.Time) (*clinical.Medication, error) {
	m, err := clinical.NewMedication(course, endDate)
	if err != nil {
		return nil, err
	}
	out := snapshot(m)
	err = d.reg.WithPatient("add_medication", patientID, func(p *identity.Patient) error {
		return p.AddMedication(m)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Doctor) AddTreatment(patientID int, course clinical.Course) (*clinical.Treatment, error) {
	t, err := clinical.NewTreatment(course)
	if err != nil {
		return nil, err
	}
	out := snapshot(t)
	err = d.reg.WithPatient("add_treatment", patientID, func(p *identity.Patient) error {
		return p.AddTreatment(t)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Doctor) AddHistory(patientID int, entry string) error {
	return d.reg.WithPatient("add_history", patientID, func(p *identity.Patient) error {
		return p.AddHistoryEntry(entry)
	})
}

// OrderLabTest creates a lab request for the patient and queues it with the
// given lab member.
func (d *Doctor) OrderLabTest(patientID int, testType string, labPersonnelID int) (*diagnostics.LabRequest, error) {
	if err := positive(labPersonnelID, "Lab personnel"); err != nil {
		return nil, err
	}
	req, err := diagnostics.NewLabRequest(patientID, testType, d.reg.Now())
	if err != nil {
		return nil, err
	}
	out := snapshot(req)
	if err := d.reg.OrderLabTest(req, labPersonnelID); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Doctor) ViewLabResults(patientID int) ([]map[string]interface{}, error) {
	out := []map[string]interface{}{}
	err := d.reg.ViewPatient(patientID, func(p *identity.Patient) {
		for _, r := range p.LabResults() {
			out = append(out, r.ToMap())
		}
	})
	return out, err
}
