package billing

import (
	"time"

	"github.com/ehr/clinic/internal/domain/ids"
	"github.com/ehr/clinic/internal/platform/apperr"
)

// FeeType tags what a fee was charged for.
type FeeType string

const (
	FeeDoctor     FeeType = "doctor"
	FeeMedication FeeType = "medication"
	FeeLab        FeeType = "lab"
	FeeOther      FeeType = "other"
)

var validFeeTypes = map[FeeType]bool{
	FeeDoctor: true, FeeMedication: true, FeeLab: true, FeeOther: true,
}

// ParseFeeType accepts the lowercase tag; an empty value means "other".
func ParseFeeType(s string) (FeeType, error) {
	if s == "" {
		return FeeOther, nil
	}
	t := FeeType(s)
	if !validFeeTypes[t] {
		return "", apperr.Validation("Invalid fee type: %s", s)
	}
	return t, nil
}

// Fee is an amount charged to a patient. It stays owned by the patient until
// paid, after which it lives in the ledger.
type Fee struct {
	id          int
	Amount      float64
	Type        FeeType
	Description string
	Date        time.Time
	PatientID   int
	Paid        bool
}

func NewFee(amount float64, feeType FeeType, description string, date time.Time, patientID int) (*Fee, error) {
	f := &Fee{
		Amount:      amount,
		Type:        feeType,
		Description: description,
		Date:        date,
		PatientID:   patientID,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	f.id = ids.Next(ids.Fee)
	return f, nil
}

func (f *Fee) ID() int { return f.id }

// Validate checks the fields a caller may have edited on a copy.
func (f *Fee) Validate() error {
	if f.Amount <= 0 {
		return apperr.Validation("Fee amount must be positive")
	}
	if !validFeeTypes[f.Type] {
		return apperr.Validation("Invalid fee type: %s", f.Type)
	}
	if f.PatientID <= 0 {
		return apperr.Validation("Patient ID must be a positive integer")
	}
	if f.Date.IsZero() {
		return apperr.Validation("Fee date is required")
	}
	return nil
}

func (f *Fee) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"id":          f.id,
		"amount":      f.Amount,
		"fee_type":    string(f.Type),
		"description": f.Description,
		"date":        f.Date.Format(time.DateOnly),
		"patient_id":  f.PatientID,
		"paid":        f.Paid,
	}
}
