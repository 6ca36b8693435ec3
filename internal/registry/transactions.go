package registry

import (
	"fmt"
	"time"

	"github.com/ehr/clinic/internal/domain/billing"
	"github.com/ehr/clinic/internal/domain/diagnostics"
	"github.com/ehr/clinic/internal/domain/identity"
	"github.com/ehr/clinic/internal/domain/medication"
	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/platform/events"
)

// PayFee settles fee from method. The method is debited first; if the
// patient or the fee cannot be found afterwards the debit is refunded. On
// success the fee leaves the patient, is marked paid and is written to the
// ledger. Either way no partial state is visible to other callers.
func (r *Registry) PayFee(fee *billing.Fee, method *billing.PaymentMethod) error {
	return r.mutate("pay_fee", func() ([]events.Event, error) {
		return r.payFee(fee, method)
	})
}

// PayPatientFee pays the stored fee feeID of a patient.
func (r *Registry) PayPatientFee(patientID, feeID int, method *billing.PaymentMethod) error {
	return r.mutate("pay_fee", func() ([]events.Event, error) {
		p, ok := r.patients[patientID]
		if !ok {
			return nil, apperr.NotFound("Patient not found")
		}
		fee, ok := p.Fee(feeID)
		if !ok {
			return nil, apperr.NotFound("Fee not found")
		}
		return r.payFee(fee, method)
	})
}

func (r *Registry) payFee(fee *billing.Fee, method *billing.PaymentMethod) ([]events.Event, error) {
	if fee == nil {
		return nil, apperr.Validation("Invalid fee object")
	}
	if method == nil {
		return nil, apperr.Validation("Invalid payment method")
	}
	if err := method.Pay(fee.Amount); err != nil {
		return nil, err
	}
	refund := func(err error) ([]events.Event, error) {
		_ = method.Refund(fee.Amount)
		return nil, err
	}

	p, ok := r.patients[fee.PatientID]
	if !ok {
		return refund(apperr.NotFound("Patient not found"))
	}
	stored, ok := p.Fee(fee.ID())
	if !ok {
		return refund(apperr.NotFound("Fee not found"))
	}
	if stored.Amount != fee.Amount {
		return refund(apperr.Conflict("Fee amount has changed since it was read"))
	}
	if _, err := p.RemoveFee(fee.ID()); err != nil {
		return refund(err)
	}
	stored.Paid = true
	entry := r.ledger.RecordPayment(stored)

	return one(events.New(events.FeePaid, map[string]interface{}{
		"fee_id":          stored.ID(),
		"patient_id":      stored.PatientID,
		"amount":          stored.Amount,
		"fee_type":        string(stored.Type),
		"ledger_entry_id": entry.ID(),
	})), nil
}

// VerifyPrescription routes rx to one pharmacist picked by the selector and
// returns that pharmacist's id. With no pharmacists registered nothing
// changes.
func (r *Registry) VerifyPrescription(rx *medication.Prescription) (int, error) {
	var pharmacistID int
	err := r.mutate("verify_prescription", func() ([]events.Event, error) {
		if rx == nil {
			return nil, apperr.Validation("Invalid prescription object")
		}
		if err := rx.Validate(); err != nil {
			return nil, err
		}
		pool := r.usersByRole(identity.RolePharmacist)
		if len(pool) == 0 {
			return nil, apperr.Rule("no pharmacists employed")
		}
		if _, ok := r.patients[rx.PatientID]; !ok {
			return nil, apperr.NotFound("Patient not found")
		}
		if r.prescriptionPending(rx.ID()) {
			return nil, apperr.Conflict("Prescription %d is already awaiting verification", rx.ID())
		}

		i := r.selector.Select(len(pool))
		if i < 0 || i >= len(pool) {
			return nil, fmt.Errorf("selector returned %d for a pool of %d", i, len(pool))
		}
		chosen := pool[i]
		prof, _ := chosen.Pharmacist()
		prof.Pending = append(prof.Pending, rx)
		pharmacistID = chosen.ID()

		return one(events.New(events.PrescriptionSubmitted, map[string]interface{}{
			"prescription_id": rx.ID(),
			"patient_id":      rx.PatientID,
			"doctor_id":       rx.DoctorID,
			"pharmacist_id":   pharmacistID,
		})), nil
	})
	return pharmacistID, err
}

func (r *Registry) prescriptionPending(id int) bool {
	for _, u := range r.users {
		if ph, ok := u.Pharmacist(); ok {
			for _, p := range ph.Pending {
				if p.ID() == id {
					return true
				}
			}
		}
	}
	return false
}

// OrderLabTest queues req with the given member of the lab staff.
func (r *Registry) OrderLabTest(req *diagnostics.LabRequest, labPersonnelID int) error {
	return r.mutate("order_lab_test", func() ([]events.Event, error) {
		if req == nil {
			return nil, apperr.Validation("Invalid lab request object")
		}
		u, ok := r.users[labPersonnelID]
		if !ok {
			return nil, apperr.NotFound("No lab personnel found with specified id")
		}
		lab, ok := u.Lab()
		if !ok {
			return nil, apperr.NotFound("No lab personnel found with specified id")
		}
		if _, ok := r.patients[req.PatientID]; !ok {
			return nil, apperr.NotFound("Patient not found")
		}
		for _, pending := range lab.PendingLabs {
			if pending.ID() == req.ID() {
				return nil, apperr.Conflict("Lab request %d is already queued", req.ID())
			}
		}
		lab.PendingLabs = append(lab.PendingLabs, req)

		return one(events.New(events.LabOrdered, map[string]interface{}{
			"lab_request_id":   req.ID(),
			"patient_id":       req.PatientID,
			"lab_personnel_id": labPersonnelID,
			"type":             req.Type,
		})), nil
	})
}

// GenerateFinancialReport aggregates every fee dated within [start, end],
// outstanding or paid, by fee type, and the recorded expenses by category.
func (r *Registry) GenerateFinancialReport(start, end time.Time) (billing.FinancialReport, error) {
	r.mu.RLock()
	fees := r.ledger.PaidFees()
	for _, p := range r.patients {
		fees = append(fees, p.Fees()...)
	}
	expenses := r.ledger.Expenses()
	report, err := billing.Aggregate(start, end, fees, expenses)
	r.mu.RUnlock()

	r.finish("financial_report", err)
	return report, err
}

// RecordExpense writes an expense entry to the ledger.
func (r *Registry) RecordExpense(e *billing.Entry) error {
	return r.mutate("record_expense", func() ([]events.Event, error) {
		if e == nil || e.Kind != billing.EntryExpense {
			return nil, apperr.Validation("Invalid expense entry")
		}
		for _, existing := range r.ledger.Entries() {
			if existing.ID() == e.ID() {
				return nil, apperr.Conflict("Ledger entry with ID %d already exists", e.ID())
			}
		}
		r.ledger.RecordExpense(e)
		return one(events.New(events.ExpenseRecorded, e.ToMap())), nil
	})
}

// Ledger projects the ledger in insertion order.
func (r *Registry) Ledger() []map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []map[string]interface{}{}
	for _, e := range r.ledger.Entries() {
		out = append(out, e.ToMap())
	}
	return out
}
