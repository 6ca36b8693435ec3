package identity

import (
	"strings"
	"time"

	"github.com/ehr/clinic/internal/domain/billing"
	"github.com/ehr/clinic/internal/domain/clinical"
	"github.com/ehr/clinic/internal/domain/diagnostics"
	"github.com/ehr/clinic/internal/domain/ids"
	"github.com/ehr/clinic/internal/domain/medication"
	"github.com/ehr/clinic/internal/platform/apperr"
)

// Patient is a registered patient and the owner of their clinical and
// billing records.
type Patient struct {
	id      int
	Name    string
	Age     int
	Gender  string
	Contact string

	history       []string
	labResults    collection[*diagnostics.LabResult]
	prescriptions collection[*medication.Prescription]
	medications   collection[*clinical.Medication]
	treatments    collection[*clinical.Treatment]
	fees          collection[*billing.Fee]
}

func NewPatient(name string, age int, gender, contact string) (*Patient, error) {
	p := &Patient{Name: name, Age: age, Gender: gender, Contact: contact}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.id = ids.Next(ids.Patient)
	p.initCollections()
	return p, nil
}

func (p *Patient) initCollections() {
	p.labResults.label = "lab result"
	p.prescriptions.label = "prescription"
	p.medications.label = "medication"
	p.treatments.label = "treatment"
	p.fees.label = "fee"
}

func (p *Patient) ID() int { return p.id }

// Validate checks the demographic fields.
func (p *Patient) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation("Patient name must be a non-empty string")
	}
	if p.Age <= 0 {
		return apperr.Validation("Patient age must be a positive integer")
	}
	if strings.TrimSpace(p.Gender) == "" {
		return apperr.Validation("Patient gender must be a non-empty string")
	}
	if strings.TrimSpace(p.Contact) == "" {
		return apperr.Validation("Patient contact must be a non-empty string")
	}
	return nil
}

// Clone returns a deep copy with the same id. Neither the collections nor
// the records in them are shared with p.
func (p *Patient) Clone() *Patient {
	c := *p
	c.history = append([]string(nil), p.history...)
	c.labResults.items = cloneAll(p.labResults.items)
	c.prescriptions.items = cloneAll(p.prescriptions.items)
	c.medications.items = cloneAll(p.medications.items)
	c.treatments.items = cloneAll(p.treatments.items)
	c.fees.items = cloneAll(p.fees.items)
	return &c
}

// -- History --

func (p *Patient) History() []string {
	return append([]string(nil), p.history...)
}

func (p *Patient) AddHistoryEntry(entry string) error {
	if strings.TrimSpace(entry) == "" {
		return apperr.Validation("History entry must be a non-empty string")
	}
	p.history = append(p.history, entry)
	return nil
}

// -- Lab results --

func (p *Patient) AddLabResult(r *diagnostics.LabResult) error { return p.labResults.add(r) }

func (p *Patient) LabResult(id int) (*diagnostics.LabResult, bool) { return p.labResults.get(id) }

func (p *Patient) LabResults() []*diagnostics.LabResult { return p.labResults.list() }

func (p *Patient) UpdateLabResult(id int, r *diagnostics.LabResult) error {
	return p.labResults.update(id, r)
}

func (p *Patient) RemoveLabResult(id int) error {
	_, err := p.labResults.remove(id)
	return err
}

// -- Prescriptions --

func (p *Patient) AddPrescription(rx *medication.Prescription) error { return p.prescriptions.add(rx) }

func (p *Patient) Prescription(id int) (*medication.Prescription, bool) {
	return p.prescriptions.get(id)
}

func (p *Patient) Prescriptions() []*medication.Prescription { return p.prescriptions.list() }

func (p *Patient) UpdatePrescription(id int, rx *medication.Prescription) error {
	return p.prescriptions.update(id, rx)
}

func (p *Patient) RemovePrescription(id int) error {
	_, err := p.prescriptions.remove(id)
	return err
}

// -- Medications --

func (p *Patient) AddMedication(m *clinical.Medication) error { return p.medications.add(m) }

func (p *Patient) Medication(id int) (*clinical.Medication, bool) { return p.medications.get(id) }

func (p *Patient) Medications() []*clinical.Medication { return p.medications.list() }

func (p *Patient) UpdateMedication(id int, m *clinical.Medication) error {
	return p.medications.update(id, m)
}

func (p *Patient) RemoveMedication(id int) error {
	_, err := p.medications.remove(id)
	return err
}

// CurrentMedications returns the courses still running at now.
func (p *Patient) CurrentMedications(now time.Time) []*clinical.Medication {
	var out []*clinical.Medication
	for _, m := range p.medications.items {
		if m.IsCurrent(now) {
			out = append(out, m)
		}
	}
	return out
}

// -- Treatments --

func (p *Patient) AddTreatment(t *clinical.Treatment) error { return p.treatments.add(t) }

func (p *Patient) Treatment(id int) (*clinical.Treatment, bool) { return p.treatments.get(id) }

func (p *Patient) Treatments() []*clinical.Treatment { return p.treatments.list() }

func (p *Patient) UpdateTreatment(id int, t *clinical.Treatment) error {
	return p.treatments.update(id, t)
}

func (p *Patient) RemoveTreatment(id int) error {
	_, err := p.treatments.remove(id)
	return err
}

// -- Fees --

// AddFee attaches an unpaid fee. The fee must name this patient.
func (p *Patient) AddFee(f *billing.Fee) error {
	if f != nil && f.PatientID != p.id {
		return apperr.Validation("Fee belongs to patient %d, not %d", f.PatientID, p.id)
	}
	return p.fees.add(f)
}

func (p *Patient) Fee(id int) (*billing.Fee, bool) { return p.fees.get(id) }

func (p *Patient) Fees() []*billing.Fee { return p.fees.list() }

func (p *Patient) UpdateFee(id int, f *billing.Fee) error {
	if f != nil {
		if err := f.Validate(); err != nil {
			return err
		}
		if f.PatientID != p.id {
			return apperr.Validation("Fee belongs to patient %d, not %d", f.PatientID, p.id)
		}
	}
	return p.fees.update(id, f)
}

// RemoveFee detaches a fee and returns it.
func (p *Patient) RemoveFee(id int) (*billing.Fee, error) {
	return p.fees.remove(id)
}

// TotalFees sums the amounts of the outstanding fees.
func (p *Patient) TotalFees() float64 {
	var total float64
	for _, f := range p.fees.items {
		total += f.Amount
	}
	return total
}

// -- Projections --

func (p *Patient) Summary() map[string]interface{} {
	return map[string]interface{}{
		"id":      p.id,
		"name":    p.Name,
		"age":     p.Age,
		"gender":  p.Gender,
		"contact": p.Contact,
	}
}

// ToMap projects the full record, sub-collections included.
func (p *Patient) ToMap(now time.Time) map[string]interface{} {
	m := p.Summary()
	m["history"] = p.History()
	m["lab_results"] = projectAll(p.labResults.items)
	m["prescriptions"] = projectAll(p.prescriptions.items)
	m["medications"] = projectAll(p.medications.items)
	m["current_medications"] = projectAll(p.CurrentMedications(now))
	m["treatments"] = projectAll(p.treatments.items)
	m["fees"] = projectAll(p.fees.items)
	m["total_fees"] = p.TotalFees()
	return m
}

type projector interface {
	ToMap() map[string]interface{}
}

func projectAll[T projector](items []T) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		out = append(out, it.ToMap())
	}
	return out
}
