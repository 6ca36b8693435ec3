package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/ehr/clinic/internal/domain/billing"
	"github.com/ehr/clinic/internal/domain/clinical"
	"github.com/ehr/clinic/internal/domain/diagnostics"
	"github.com/ehr/clinic/internal/domain/medication"
	"github.com/ehr/clinic/internal/platform/apperr"
)

var today = time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)

func newPatient(t *testing.T) *Patient {
	t.Helper()
	p, err := NewPatient("A", 30, "F", "555-0101")
	if err != nil {
		t.Fatalf("NewPatient: %v", err)
	}
	return p
}

func newFee(t *testing.T, p *Patient, amount float64) *billing.Fee {
	t.Helper()
	f, err := billing.NewFee(amount, billing.FeeDoctor, "consult", today, p.ID())
	if err != nil {
		t.Fatalf("NewFee: %v", err)
	}
	return f
}

func TestNewPatient_Validation(t *testing.T) {
	tests := []struct {
		name, gender, contact string
		age                   int
		wantMsg               string
	}{
		{"", "F", "x", 30, "Patient name must be a non-empty string"},
		{"A", "F", "x", 0, "Patient age must be a positive integer"},
		{"A", " ", "x", 30, "Patient gender must be a non-empty string"},
		{"A", "F", "", 30, "Patient contact must be a non-empty string"},
	}
	for _, tt := range tests {
		_, err := NewPatient(tt.name, tt.age, tt.gender, tt.contact)
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
			continue
		}
		if err.Error() != tt.wantMsg {
			t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
		}
	}
}

func TestPatient_FeeTotals(t *testing.T) {
	p := newPatient(t)
	if err := p.AddFee(newFee(t, p, 100)); err != nil {
		t.Fatalf("AddFee: %v", err)
	}
	if p.TotalFees() != 100 {
		t.Fatalf("expected total 100, got %v", p.TotalFees())
	}

	before := p.TotalFees()
	extra := newFee(t, p, 42.5)
	if err := p.AddFee(extra); err != nil {
		t.Fatalf("AddFee: %v", err)
	}
	if p.TotalFees() != before+42.5 {
		t.Errorf("expected %v, got %v", before+42.5, p.TotalFees())
	}
	if _, err := p.RemoveFee(extra.ID()); err != nil {
		t.Fatalf("RemoveFee: %v", err)
	}
	if p.TotalFees() != before {
		t.Errorf("round trip: expected %v, got %v", before, p.TotalFees())
	}
}

func TestPatient_AddFee_RejectsOtherPatientAndDuplicates(t *testing.T) {
	p := newPatient(t)
	other := newPatient(t)
	if err := p.AddFee(newFee(t, other, 10)); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	f := newFee(t, p, 10)
	_ = p.AddFee(f)
	if err := p.AddFee(f); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
	if err := p.AddFee(nil); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for nil fee, got %v", err)
	}
}

func TestPatient_UpdateFee(t *testing.T) {
	p := newPatient(t)
	f := newFee(t, p, 10)
	g := newFee(t, p, 20)
	_ = p.AddFee(f)

	if err := p.UpdateFee(f.ID(), g); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict when changing id, got %v", err)
	}
	if got, _ := p.Fee(f.ID()); got != f {
		t.Error("stored fee replaced by failed update")
	}
	if err := p.UpdateFee(g.ID(), g); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if err := p.UpdateFee(0, g); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for id 0, got %v", err)
	}

	edited := *f
	edited.Amount = 15
	if err := p.UpdateFee(f.ID(), &edited); err != nil {
		t.Fatalf("UpdateFee: %v", err)
	}
	if p.TotalFees() != 15 {
		t.Errorf("expected total 15, got %v", p.TotalFees())
	}

	edited.Amount = -1
	if err := p.UpdateFee(f.ID(), &edited); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for negative amount, got %v", err)
	}
}

func TestPatient_RemoveMissing(t *testing.T) {
	p := newPatient(t)
	if err := p.RemoveTreatment(999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if err := p.RemoveLabResult(-1); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if err := p.RemovePrescription(999); err == nil || err.Error() != "Prescription not found" {
		t.Errorf("unexpected error %v", err)
	}
}

// Every sub-collection rejects an update whose record carries another id.
func TestPatient_UpdateRejectsIDChange(t *testing.T) {
	p := newPatient(t)

	c := clinical.Course{Diagnosis: "flu", Treatment: "rest", Date: today}
	m1, _ := clinical.NewMedication(c, today.AddDate(0, 0, 5))
	m2, _ := clinical.NewMedication(c, today.AddDate(0, 0, 5))
	_ = p.AddMedication(m1)
	if err := p.UpdateMedication(m1.ID(), m2); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("medication: expected conflict, got %v", err)
	}

	t1, _ := clinical.NewTreatment(c)
	t2, _ := clinical.NewTreatment(c)
	_ = p.AddTreatment(t1)
	if err := p.UpdateTreatment(t1.ID(), t2); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("treatment: expected conflict, got %v", err)
	}

	r1, _ := diagnostics.NewLabResult(1, "CBC", "ok", today)
	r2, _ := diagnostics.NewLabResult(1, "CBC", "ok", today)
	_ = p.AddLabResult(r1)
	if err := p.UpdateLabResult(r1.ID(), r2); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("lab result: expected conflict, got %v", err)
	}

	rx1, _ := medication.NewPrescription(p.ID(), 1, "x", "1", 1, today)
	rx2, _ := medication.NewPrescription(p.ID(), 1, "x", "1", 1, today)
	_ = p.AddPrescription(rx1)
	if err := p.UpdatePrescription(rx1.ID(), rx2); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("prescription: expected conflict, got %v", err)
	}
	if got, _ := p.Prescription(rx1.ID()); got != rx1 {
		t.Error("prescription replaced by failed update")
	}
}

func TestPatient_CurrentMedications(t *testing.T) {
	p := newPatient(t)
	c := clinical.Course{Diagnosis: "flu", Treatment: "rest", Date: today.AddDate(0, 0, -10)}
	running, _ := clinical.NewMedication(c, today.AddDate(0, 0, 3))
	ended, _ := clinical.NewMedication(c, today.AddDate(0, 0, -1))
	finished, _ := clinical.NewMedication(c, today.AddDate(0, 0, 3))
	finished.Finished = true
	for _, m := range []*clinical.Medication{running, ended, finished} {
		_ = p.AddMedication(m)
	}

	cur := p.CurrentMedications(today)
	if len(cur) != 1 || cur[0] != running {
		t.Errorf("expected only the running course, got %d", len(cur))
	}
}

func TestPatient_History(t *testing.T) {
	p := newPatient(t)
	if err := p.AddHistoryEntry(""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	_ = p.AddHistoryEntry("appendectomy 2019")
	h := p.History()
	h[0] = "tampered"
	if p.History()[0] != "appendectomy 2019" {
		t.Error("History must return a copy")
	}
}

func TestPatient_CloneIsolatesCollections(t *testing.T) {
	p := newPatient(t)
	_ = p.AddFee(newFee(t, p, 10))
	c := p.Clone()
	if c.ID() != p.ID() {
		t.Fatalf("clone id %d, want %d", c.ID(), p.ID())
	}
	_ = c.AddFee(newFee(t, p, 5))
	if p.TotalFees() != 10 {
		t.Errorf("clone mutation leaked into original: total %v", p.TotalFees())
	}

	c.Fees()[0].Amount = 99
	if p.TotalFees() != 10 {
		t.Errorf("clone shares fee records with the original: total %v", p.TotalFees())
	}
	if c.Fees()[0] == p.Fees()[0] {
		t.Error("clone must hold its own fee records")
	}
}

func TestPatient_ToMap(t *testing.T) {
	p := newPatient(t)
	_ = p.AddFee(newFee(t, p, 12))
	m := p.ToMap(today)
	if m["total_fees"] != 12.0 {
		t.Errorf("total_fees = %v", m["total_fees"])
	}
	fees, ok := m["fees"].([]map[string]interface{})
	if !ok || len(fees) != 1 || fees[0]["date"] != "2025-05-20" {
		t.Errorf("unexpected fees projection %v", m["fees"])
	}
}
