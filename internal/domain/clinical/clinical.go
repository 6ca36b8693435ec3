// Package clinical holds the care records a doctor attaches to a patient:
// medication courses and treatments.
package clinical

import (
	"strings"
	"time"

	"github.com/ehr/clinic/internal/domain/ids"
	"github.com/ehr/clinic/internal/platform/apperr"
)

// Course is the common shape of a medication course and a treatment.
type Course struct {
	Symptoms  string
	Diagnosis string
	Treatment string
	Date      time.Time
	Finished  bool
}

func (c Course) validate() error {
	if strings.TrimSpace(c.Diagnosis) == "" {
		return apperr.Validation("Diagnosis must be a non-empty string")
	}
	if strings.TrimSpace(c.Treatment) == "" {
		return apperr.Validation("Treatment must be a non-empty string")
	}
	if c.Date.IsZero() {
		return apperr.Validation("Treatment date is required")
	}
	return nil
}

func (c Course) status() string {
	if c.Finished {
		return "completed"
	}
	return "ongoing"
}

func (c Course) fields(id int) map[string]interface{} {
	return map[string]interface{}{
		"id":        id,
		"symptoms":  c.Symptoms,
		"diagnosis": c.Diagnosis,
		"treatment": c.Treatment,
		"date":      c.Date.Format(time.DateOnly),
		"finished":  c.Finished,
		"status":    c.status(),
	}
}

// Medication is a course of medication with an end date. It is current while
// the end date lies in the future and it has not been marked finished.
type Medication struct {
	id int
	Course
	EndDate time.Time
}

func NewMedication(c Course, endDate time.Time) (*Medication, error) {
	m := &Medication{Course: c, EndDate: endDate}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.id = ids.Next(ids.Medication)
	return m, nil
}

func (m *Medication) ID() int { return m.id }

func (m *Medication) Validate() error {
	if err := m.Course.validate(); err != nil {
		return err
	}
	if m.EndDate.IsZero() {
		return apperr.Validation("Medication end date is required")
	}
	if m.EndDate.Before(m.Date) {
		return apperr.Validation("Medication end date must not precede its start date")
	}
	return nil
}

// IsCurrent reports whether the course is still running at now.
func (m *Medication) IsCurrent(now time.Time) bool {
	return !m.Finished && m.EndDate.After(now)
}

func (m *Medication) ToMap() map[string]interface{} {
	out := m.fields(m.id)
	out["end_date"] = m.EndDate.Format(time.DateOnly)
	return out
}

// Treatment is a procedure or therapy administered to a patient.
type Treatment struct {
	id int
	Course
}

func NewTreatment(c Course) (*Treatment, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &Treatment{id: ids.Next(ids.Treatment), Course: c}, nil
}

func (t *Treatment) ID() int { return t.id }

func (t *Treatment) Validate() error { return t.Course.validate() }

func (t *Treatment) ToMap() map[string]interface{} {
	return t.fields(t.id)
}

// Summary renders the multi-line text used in patient history entries.
func (t *Treatment) Summary() string {
	var b strings.Builder
	b.WriteString("Symptoms: " + t.Symptoms + "\n")
	b.WriteString("Diagnosis: " + t.Diagnosis + "\n")
	b.WriteString("Treatment: " + t.Treatment + "\n")
	b.WriteString("Date: " + t.Date.Format(time.DateOnly) + "\n")
	b.WriteString("Status: " + t.status())
	return b.String()
}
