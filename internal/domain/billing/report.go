package billing

import (
	"time"

	"github.com/ehr/clinic/internal/platform/apperr"
)

// FinancialReport is the income and expense summary for a date range.
type FinancialReport struct {
	Period        string        `json:"period"`
	TotalIncome   float64       `json:"total_income"`
	TotalExpenses float64       `json:"total_expenses"`
	NetProfit     float64       `json:"net_profit"`
	Details       ReportDetails `json:"details"`
}

type ReportDetails struct {
	DoctorFees     float64 `json:"doctor_fees"`
	MedicationFees float64 `json:"medication_fees"`
	LabFees        float64 `json:"lab_fees"`
	OtherIncome    float64 `json:"other_income"`
	SupplyExpenses float64 `json:"supply_expenses"`
	SalaryExpenses float64 `json:"salary_expenses"`
	OtherExpenses  float64 `json:"other_expenses"`
}

// ParseReportDate parses a YYYY-MM-DD report bound.
func ParseReportDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, apperr.Validation("Dates must be non-empty strings")
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, apperr.Validation("Dates must be in YYYY-MM-DD format")
	}
	return t, nil
}

// Aggregate buckets every fee dated within [start, end] by fee type and every
// expense in the same range by category. Fees are counted whether or not they
// have been paid yet. Both bounds are inclusive and compared by calendar day.
func Aggregate(start, end time.Time, fees []*Fee, expenses []*Entry) (FinancialReport, error) {
	start, end = day(start), day(end)
	if start.After(end) {
		return FinancialReport{}, apperr.Validation("Start date must not be after end date")
	}
	inRange := func(t time.Time) bool {
		d := day(t)
		return !d.Before(start) && !d.After(end)
	}

	var r FinancialReport
	for _, f := range fees {
		if !inRange(f.Date) {
			continue
		}
		switch f.Type {
		case FeeDoctor:
			r.Details.DoctorFees += f.Amount
		case FeeMedication:
			r.Details.MedicationFees += f.Amount
		case FeeLab:
			r.Details.LabFees += f.Amount
		default:
			r.Details.OtherIncome += f.Amount
		}
		r.TotalIncome += f.Amount
	}
	for _, e := range expenses {
		if e.Kind != EntryExpense || !inRange(e.Date) {
			continue
		}
		switch ExpenseCategory(e.Category) {
		case ExpenseSupply:
			r.Details.SupplyExpenses += e.Amount
		case ExpenseSalary:
			r.Details.SalaryExpenses += e.Amount
		default:
			r.Details.OtherExpenses += e.Amount
		}
		r.TotalExpenses += e.Amount
	}
	r.NetProfit = r.TotalIncome - r.TotalExpenses
	r.Period = start.Format(time.DateOnly) + " to " + end.Format(time.DateOnly)
	return r, nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
