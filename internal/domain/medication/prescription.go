package medication

import (
	"strings"
	"time"

	"github.com/ehr/clinic/internal/domain/ids"
	"github.com/ehr/clinic/internal/platform/apperr"
)

// Feedback is the pharmacist's verdict on a prescription.
type Feedback struct {
	Approved bool   `json:"approved"`
	Message  string `json:"message"`
}

// Prescription is issued by a doctor and verified by a pharmacist before it
// joins the patient's record.
type Prescription struct {
	id         int
	PatientID  int
	DoctorID   int
	Medication string
	Dosage     string
	Amount     float64
	IssuedOn   time.Time
	Approved   bool
	Feedback   Feedback
}

func NewPrescription(patientID, doctorID int, medication, dosage string, amount float64, issuedOn time.Time) (*Prescription, error) {
	p := &Prescription{
		PatientID:  patientID,
		DoctorID:   doctorID,
		Medication: medication,
		Dosage:     dosage,
		Amount:     amount,
		IssuedOn:   issuedOn,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.id = ids.Next(ids.Prescription)
	return p, nil
}

func (p *Prescription) ID() int { return p.id }

func (p *Prescription) Validate() error {
	if p.PatientID <= 0 {
		return apperr.Validation("Patient ID must be a positive integer")
	}
	if p.DoctorID <= 0 {
		return apperr.Validation("Doctor ID must be a positive integer")
	}
	if strings.TrimSpace(p.Medication) == "" {
		return apperr.Validation("Medication must be a non-empty string")
	}
	if strings.TrimSpace(p.Dosage) == "" {
		return apperr.Validation("Dosage must be a non-empty string")
	}
	if p.Amount < 0 {
		return apperr.Validation("Prescription amount cannot be negative")
	}
	return nil
}

// Review records the pharmacist's verdict.
func (p *Prescription) Review(approved bool, message string) {
	p.Approved = approved
	p.Feedback = Feedback{Approved: approved, Message: message}
}

func (p *Prescription) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":          p.id,
		"patient_id":  p.PatientID,
		"doctor_id":   p.DoctorID,
		"medication":  p.Medication,
		"dosage":      p.Dosage,
		"amount":      p.Amount,
		"is_approved": p.Approved,
		"feedback":    p.Feedback,
	}
	if !p.IssuedOn.IsZero() {
		m["date"] = p.IssuedOn.Format(time.DateOnly)
	}
	return m
}
