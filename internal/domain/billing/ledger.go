package billing

import (
	"strings"
	"time"

	"github.com/ehr/clinic/internal/domain/ids"
	"github.com/ehr/clinic/internal/platform/apperr"
)

type EntryKind string

const (
	EntryIncome  EntryKind = "income"
	EntryExpense EntryKind = "expense"
)

// ExpenseCategory buckets money leaving the clinic.
type ExpenseCategory string

const (
	ExpenseSupply ExpenseCategory = "supply"
	ExpenseSalary ExpenseCategory = "salary"
	ExpenseOther  ExpenseCategory = "other"
)

var validExpenseCategories = map[ExpenseCategory]bool{
	ExpenseSupply: true, ExpenseSalary: true, ExpenseOther: true,
}

// Entry is one line of the clinic ledger. Income entries are written when a
// fee is paid and keep a copy of the fee; expense entries are recorded
// directly by staff.
type Entry struct {
	id          int
	Kind        EntryKind
	Category    string
	Amount      float64
	Description string
	Date        time.Time
	Fee         *Fee
}

func (e *Entry) ID() int { return e.id }

// NewExpense validates and builds an expense entry.
func NewExpense(category string, amount float64, description string, date time.Time) (*Entry, error) {
	c := ExpenseCategory(strings.ToLower(strings.TrimSpace(category)))
	if !validExpenseCategories[c] {
		return nil, apperr.Validation("Invalid expense category: %s", category)
	}
	if amount <= 0 {
		return nil, apperr.Validation("Expense amount must be positive")
	}
	if date.IsZero() {
		return nil, apperr.Validation("Expense date is required")
	}
	return &Entry{
		id:          ids.Next(ids.LedgerEntry),
		Kind:        EntryExpense,
		Category:    string(c),
		Amount:      amount,
		Description: description,
		Date:        date,
	}, nil
}

func incomeFromFee(f *Fee) *Entry {
	copied := *f
	return &Entry{
		id:          ids.Next(ids.LedgerEntry),
		Kind:        EntryIncome,
		Category:    string(f.Type),
		Amount:      f.Amount,
		Description: f.Description,
		Date:        f.Date,
		Fee:         &copied,
	}
}

func (e *Entry) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":          e.id,
		"kind":        string(e.Kind),
		"category":    e.Category,
		"amount":      e.Amount,
		"description": e.Description,
		"date":        e.Date.Format(time.DateOnly),
	}
	if e.Fee != nil {
		m["fee_id"] = e.Fee.ID()
		m["patient_id"] = e.Fee.PatientID
	}
	return m
}

// Ledger is an append-only record of paid fees and expenses. It carries no
// lock of its own; the registry serializes access to it.
type Ledger struct {
	entries []*Entry
}

// RecordPayment appends an income entry for a fee that has just been paid.
func (l *Ledger) RecordPayment(f *Fee) *Entry {
	e := incomeFromFee(f)
	l.entries = append(l.entries, e)
	return e
}

func (l *Ledger) RecordExpense(e *Entry) {
	l.entries = append(l.entries, e)
}

// Entries returns a copy of the ledger in insertion order.
func (l *Ledger) Entries() []*Entry {
	out := make([]*Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// PaidFees returns the fees carried by income entries.
func (l *Ledger) PaidFees() []*Fee {
	var out []*Fee
	for _, e := range l.entries {
		if e.Kind == EntryIncome && e.Fee != nil {
			out = append(out, e.Fee)
		}
	}
	return out
}

// Expenses returns the expense entries.
func (l *Ledger) Expenses() []*Entry {
	var out []*Entry
	for _, e := range l.entries {
		if e.Kind == EntryExpense {
			out = append(out, e)
		}
	}
	return out
}
