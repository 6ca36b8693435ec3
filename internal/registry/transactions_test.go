package registry

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ehr/clinic/internal/domain/billing"
	"github.com/ehr/clinic/internal/domain/diagnostics"
	"github.com/ehr/clinic/internal/domain/identity"
	"github.com/ehr/clinic/internal/domain/medication"
	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/platform/events"
)

func newRx(t *testing.T, patientID, doctorID int, amount float64) *medication.Prescription {
	t.Helper()
	rx, err := medication.NewPrescription(patientID, doctorID, "Amoxicillin", "500mg", amount, fixedNow)
	if err != nil {
		t.Fatalf("NewPrescription: %v", err)
	}
	return rx
}

func newFee(t *testing.T, r *Registry, p *identity.Patient, amount float64, ft billing.FeeType) *billing.Fee {
	t.Helper()
	f, err := billing.NewFee(amount, ft, "visit", fixedNow, p.ID())
	if err != nil {
		t.Fatalf("NewFee: %v", err)
	}
	err = r.WithPatient("add_fee", p.ID(), func(stored *identity.Patient) error {
		return stored.AddFee(f)
	})
	if err != nil {
		t.Fatalf("AddFee: %v", err)
	}
	return f
}

func newMethod(t *testing.T, balance float64) *billing.PaymentMethod {
	t.Helper()
	m, err := billing.NewPaymentMethod("card", "visa", balance)
	if err != nil {
		t.Fatalf("NewPaymentMethod: %v", err)
	}
	return m
}

func TestPayFee_SettlesFee(t *testing.T) {
	r, rec := newTestRegistry(t)
	p := mustPatient(t, r, "A")
	fee := newFee(t, r, p, 100, billing.FeeDoctor)

	got, _ := r.GetPatient(p.ID())
	if got.TotalFees() != 100 {
		t.Fatalf("expected total fees 100, got %v", got.TotalFees())
	}

	method := newMethod(t, 150)
	if err := r.PayFee(fee, method); err != nil {
		t.Fatalf("PayFee: %v", err)
	}
	if method.Balance() != 50 {
		t.Errorf("expected balance 50, got %v", method.Balance())
	}
	got, _ = r.GetPatient(p.ID())
	if len(got.Fees()) != 0 || got.TotalFees() != 0 {
		t.Errorf("expected no outstanding fees, got %v", got.Fees())
	}

	ledger := r.Ledger()
	if len(ledger) != 1 || ledger[0]["kind"] != string(billing.EntryIncome) {
		t.Errorf("expected one income entry, got %v", ledger)
	}
	if types := rec.Types(); types[len(types)-1] != events.FeePaid {
		t.Errorf("expected fee.paid event, got %v", types)
	}
}

func TestPayFee_InsufficientBalance(t *testing.T) {
	r, _ := newTestRegistry(t)
	p := mustPatient(t, r, "A")
	fee := newFee(t, r, p, 100, billing.FeeDoctor)
	method := newMethod(t, 20)

	if err := r.PayFee(fee, method); !errors.Is(err, apperr.ErrRule) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if method.Balance() != 20 {
		t.Errorf("balance changed to %v", method.Balance())
	}
	got, _ := r.GetPatient(p.ID())
	if len(got.Fees()) != 1 {
		t.Errorf("fee should still be outstanding")
	}
}

// A failed payment refunds the method: the balance ends where it started.
func TestPayFee_RefundsOnFailure(t *testing.T) {
	r, _ := newTestRegistry(t)
	p := mustPatient(t, r, "A")
	fee := newFee(t, r, p, 100, billing.FeeDoctor)

	t.Run("patient missing", func(t *testing.T) {
		orphan, _ := billing.NewFee(40, billing.FeeLab, "", fixedNow, 987654)
		method := newMethod(t, 150)
		if err := r.PayFee(orphan, method); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		if method.Balance() != 150 {
			t.Errorf("expected balance 150, got %v", method.Balance())
		}
	})

	t.Run("fee missing", func(t *testing.T) {
		stray, _ := billing.NewFee(40, billing.FeeLab, "", fixedNow, p.ID())
		method := newMethod(t, 150)
		if err := r.PayFee(stray, method); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		if method.Balance() != 150 {
			t.Errorf("expected balance 150, got %v", method.Balance())
		}
	})

	t.Run("stale amount", func(t *testing.T) {
		stale := *fee
		stale.Amount = 60
		method := newMethod(t, 150)
		if err := r.PayFee(&stale, method); !errors.Is(err, apperr.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
		if method.Balance() != 150 {
			t.Errorf("expected balance 150, got %v", method.Balance())
		}
	})

	if len(r.Ledger()) != 0 {
		t.Errorf("no ledger entry expected, got %v", r.Ledger())
	}
}

func TestPayPatientFee(t *testing.T) {
	r, _ := newTestRegistry(t)
	p := mustPatient(t, r, "A")
	fee := newFee(t, r, p, 30, billing.FeeLab)
	method := newMethod(t, 30)

	if err := r.PayPatientFee(p.ID(), 555555, method); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if err := r.PayPatientFee(p.ID(), fee.ID(), method); err != nil {
		t.Fatalf("PayPatientFee: %v", err)
	}
	if method.Balance() != 0 {
		t.Errorf("expected empty balance, got %v", method.Balance())
	}
}

func TestVerifyPrescription_NoPharmacists(t *testing.T) {
	r, rec := newTestRegistry(t)
	doc := mustUser(t, r, "doc", &identity.DoctorProfile{})
	p := mustPatient(t, r, "A")
	before := len(rec.Events())

	_, err := r.VerifyPrescription(newRx(t, p.ID(), doc.ID(), 5))
	if !errors.Is(err, apperr.ErrRule) || !strings.Contains(err.Error(), "no pharmacists employed") {
		t.Fatalf("expected no pharmacists error, got %v", err)
	}
	if len(rec.Events()) != before {
		t.Errorf("no event expected on failure")
	}
	got, _ := r.GetPatient(p.ID())
	if len(got.Prescriptions()) != 0 {
		t.Errorf("patient should be untouched")
	}
}

func TestVerifyPrescription_RoutesToSelectedPharmacist(t *testing.T) {
	r, _ := newTestRegistry(t, WithSelector(FixedSelector(1)))
	doc := mustUser(t, r, "doc", &identity.DoctorProfile{})
	ph1 := mustUser(t, r, "ph1", &identity.PharmacistProfile{})
	ph2 := mustUser(t, r, "ph2", &identity.PharmacistProfile{})
	p := mustPatient(t, r, "A")
	rx := newRx(t, p.ID(), doc.ID(), 5)

	id, err := r.VerifyPrescription(rx)
	if err != nil {
		t.Fatalf("VerifyPrescription: %v", err)
	}
	if id != ph2.ID() {
		t.Errorf("expected pharmacist %d, got %d", ph2.ID(), id)
	}
	pending, _ := r.PendingPrescriptions(ph2.ID())
	if len(pending) != 1 {
		t.Errorf("expected 1 pending prescription, got %d", len(pending))
	}
	if pending, _ := r.PendingPrescriptions(ph1.ID()); len(pending) != 0 {
		t.Errorf("ph1 should have no work")
	}
	if _, err := r.VerifyPrescription(rx); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict on resubmission, got %v", err)
	}
}

func TestVerifyPrescription_BadSelector(t *testing.T) {
	r, _ := newTestRegistry(t, WithSelector(SelectorFunc(func(n int) int { return n })))
	doc := mustUser(t, r, "doc", &identity.DoctorProfile{})
	mustUser(t, r, "ph", &identity.PharmacistProfile{})
	p := mustPatient(t, r, "A")
	if _, err := r.VerifyPrescription(newRx(t, p.ID(), doc.ID(), 5)); err == nil {
		t.Fatal("expected error for out-of-range selection")
	}
}

func TestPharmacyWorkflow(t *testing.T) {
	r, rec := newTestRegistry(t)
	doc := mustUser(t, r, "doc", &identity.DoctorProfile{})
	ph := mustUser(t, r, "ph", &identity.PharmacistProfile{})
	p := mustPatient(t, r, "A")

	good := newRx(t, p.ID(), doc.ID(), 12.5)
	bad := newRx(t, p.ID(), doc.ID(), 0)
	for _, rx := range []*medication.Prescription{good, bad} {
		if _, err := r.VerifyPrescription(rx); err != nil {
			t.Fatalf("VerifyPrescription: %v", err)
		}
	}

	if err := r.ApprovePrescription(ph.ID(), good.ID(), "ok"); err != nil {
		t.Fatalf("ApprovePrescription: %v", err)
	}
	if err := r.ApprovePrescription(ph.ID(), good.ID(), "again"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found on second approval, got %v", err)
	}
	if err := r.RejectPrescription(ph.ID(), bad.ID(), "dosage too high"); err != nil {
		t.Fatalf("RejectPrescription: %v", err)
	}

	invalid, err := r.InvalidPrescriptions(doc.ID())
	if err != nil || len(invalid) != 1 {
		t.Fatalf("expected 1 invalid prescription, got %v (%v)", invalid, err)
	}
	if len(r.DispenseQueue()) != 1 {
		t.Fatalf("expected 1 prescription awaiting dispense")
	}

	fee, err := r.DispensePrescription(good.ID())
	if err != nil {
		t.Fatalf("DispensePrescription: %v", err)
	}
	if fee == nil || fee.Amount != 12.5 || fee.Type != billing.FeeMedication {
		t.Errorf("unexpected fee %+v", fee)
	}
	if len(r.DispenseQueue()) != 0 {
		t.Errorf("dispense queue should be empty")
	}
	got, _ := r.GetPatient(p.ID())
	if len(got.Prescriptions()) != 1 || got.TotalFees() != 12.5 {
		t.Errorf("patient record not updated: %v", got.ToMap(fixedNow))
	}

	want := []string{
		events.PatientRegistered,
		events.PrescriptionSubmitted,
		events.PrescriptionSubmitted,
		events.PrescriptionApproved,
		events.PrescriptionRejected,
		events.PrescriptionDispensed,
	}
	gotTypes := rec.Types()
	if len(gotTypes) != len(want) {
		t.Fatalf("expected events %v, got %v", want, gotTypes)
	}
	for i := range want {
		if gotTypes[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], gotTypes[i])
		}
	}
}

func TestRejectPrescription_DoctorGone(t *testing.T) {
	r, _ := newTestRegistry(t)
	doc := mustUser(t, r, "doc", &identity.DoctorProfile{})
	ph := mustUser(t, r, "ph", &identity.PharmacistProfile{})
	p := mustPatient(t, r, "A")
	rx := newRx(t, p.ID(), doc.ID(), 1)
	if _, err := r.VerifyPrescription(rx); err != nil {
		t.Fatalf("VerifyPrescription: %v", err)
	}
	if err := r.DeleteUser(doc.ID()); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	err := r.RejectPrescription(ph.ID(), rx.ID(), "no")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if pending, _ := r.PendingPrescriptions(ph.ID()); len(pending) != 1 {
		t.Errorf("prescription should stay pending after a failed rejection")
	}
}

func TestLabWorkflow(t *testing.T) {
	r, _ := newTestRegistry(t)
	lab := mustUser(t, r, "lab", &identity.LabProfile{})
	nurse := mustUser(t, r, "nurse", &identity.NurseProfile{})
	p := mustPatient(t, r, "A")

	req, err := diagnostics.NewLabRequest(p.ID(), "blood panel", fixedNow)
	if err != nil {
		t.Fatalf("NewLabRequest: %v", err)
	}
	if err := r.OrderLabTest(req, nurse.ID()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for non-lab user, got %v", err)
	}
	if err := r.OrderLabTest(req, lab.ID()); err != nil {
		t.Fatalf("OrderLabTest: %v", err)
	}
	if err := r.OrderLabTest(req, lab.ID()); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict for duplicate order, got %v", err)
	}

	if err := r.AssistLabTest(nurse.ID(), req.ID()); err != nil {
		t.Fatalf("AssistLabTest: %v", err)
	}
	if err := r.AssistLabTest(nurse.ID(), req.ID()+1); !errors.Is(err, apperr.ErrRule) {
		t.Errorf("expected rule violation, got %v", err)
	}

	res, err := r.ReturnLabResult(lab.ID(), req.ID(), "normal")
	if err != nil {
		t.Fatalf("ReturnLabResult: %v", err)
	}
	if res.RequestID != req.ID() || res.Result != "normal" {
		t.Errorf("unexpected result %+v", res)
	}
	if _, err := r.ReturnLabResult(lab.ID(), req.ID(), "normal"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for returned request, got %v", err)
	}
	got, _ := r.GetPatient(p.ID())
	if len(got.LabResults()) != 1 {
		t.Errorf("expected lab result on patient")
	}

	if err := r.FinishLabAssist(nurse.ID()); err != nil {
		t.Fatalf("FinishLabAssist: %v", err)
	}
	if err := r.FinishLabAssist(nurse.ID()); !errors.Is(err, apperr.ErrRule) {
		t.Errorf("expected rule violation, got %v", err)
	}
	if err := r.DeleteUser(lab.ID()); err != nil {
		t.Errorf("lab member with an empty queue should be deletable: %v", err)
	}
}

func TestOrderLabTest_UnknownLab(t *testing.T) {
	r, _ := newTestRegistry(t)
	p := mustPatient(t, r, "A")
	req, _ := diagnostics.NewLabRequest(p.ID(), "xray", fixedNow)
	err := r.OrderLabTest(req, 4040)
	if err == nil || err.Error() != "No lab personnel found with specified id" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestAdministerTreatment(t *testing.T) {
	r, _ := newTestRegistry(t)
	nurse := mustUser(t, r, "nurse", &identity.NurseProfile{})
	p := mustPatient(t, r, "A")

	if err := r.AdministerTreatment(nurse.ID(), p.ID(), "  "); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if err := r.AdministerTreatment(nurse.ID(), p.ID(), "Paracetamol"); err != nil {
		t.Fatalf("AdministerTreatment: %v", err)
	}
	got, _ := r.GetPatient(p.ID())
	h := got.History()
	if len(h) != 1 || !strings.Contains(h[0], "Paracetamol") || !strings.Contains(h[0], "nurse") {
		t.Errorf("unexpected history %v", h)
	}
}

func TestGenerateFinancialReport(t *testing.T) {
	r, _ := newTestRegistry(t)
	p := mustPatient(t, r, "A")
	paid := newFee(t, r, p, 100, billing.FeeDoctor)
	newFee(t, r, p, 40, billing.FeeLab)
	if err := r.PayFee(paid, newMethod(t, 500)); err != nil {
		t.Fatalf("PayFee: %v", err)
	}

	exp, err := billing.NewExpense("Salary", 60, "wages", fixedNow)
	if err != nil {
		t.Fatalf("NewExpense: %v", err)
	}
	if err := r.RecordExpense(exp); err != nil {
		t.Fatalf("RecordExpense: %v", err)
	}
	if err := r.RecordExpense(exp); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict for duplicate entry, got %v", err)
	}

	report, err := r.GenerateFinancialReport(fixedNow.AddDate(0, 0, -1), fixedNow)
	if err != nil {
		t.Fatalf("GenerateFinancialReport: %v", err)
	}
	if report.TotalIncome != 140 || report.TotalExpenses != 60 || report.NetProfit != 80 {
		t.Errorf("unexpected totals %+v", report)
	}
	if report.Details.DoctorFees != 100 || report.Details.LabFees != 40 || report.Details.SalaryExpenses != 60 {
		t.Errorf("unexpected details %+v", report.Details)
	}
	if report.Period != "2025-03-09 to 2025-03-10" {
		t.Errorf("unexpected period %q", report.Period)
	}

	empty, err := r.GenerateFinancialReport(fixedNow.AddDate(0, 1, 0), fixedNow.AddDate(0, 2, 0))
	if err != nil || empty.TotalIncome != 0 || empty.TotalExpenses != 0 {
		t.Errorf("expected empty report, got %+v (%v)", empty, err)
	}
	if _, err := r.GenerateFinancialReport(fixedNow, fixedNow.Add(-48*time.Hour)); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for reversed range, got %v", err)
	}
}

func TestPayFee_StaleFeeFromPatientRead(t *testing.T) {
	r, _ := newTestRegistry(t)
	p := mustPatient(t, r, "A")
	newFee(t, r, p, 100, billing.FeeDoctor)

	read, _ := r.GetPatient(p.ID())
	fee := read.Fees()[0]
	err := r.WithPatient("edit_fee", p.ID(), func(stored *identity.Patient) error {
		cur, _ := stored.Fee(fee.ID())
		cp := *cur
		cp.Amount = 150
		return stored.UpdateFee(fee.ID(), &cp)
	})
	if err != nil {
		t.Fatalf("UpdateFee: %v", err)
	}
	if fee.Amount != 100 {
		t.Fatalf("read fee changed with the stored one: %v", fee.Amount)
	}

	method := newMethod(t, 500)
	if err := r.PayFee(fee, method); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict for a repriced fee, got %v", err)
	}
	if method.Balance() != 500 {
		t.Errorf("expected refund to 500, got %v", method.Balance())
	}
	got, _ := r.GetPatient(p.ID())
	if got.TotalFees() != 150 {
		t.Errorf("fee must stay outstanding at 150, got %v", got.TotalFees())
	}
}

func TestGetUser_ProfileIsACopy(t *testing.T) {
	r, _ := newTestRegistry(t)
	p := mustPatient(t, r, "A")
	ph := mustUser(t, r, "rx", &identity.PharmacistProfile{})
	if _, err := r.VerifyPrescription(newRx(t, p.ID(), 7, 5)); err != nil {
		t.Fatalf("VerifyPrescription: %v", err)
	}

	u, _ := r.GetUser(ph.ID())
	prof, _ := u.Pharmacist()
	prof.Pending[0].Dosage = "tampered"
	prof.Pending = nil

	pending, err := r.PendingPrescriptions(ph.ID())
	if err != nil {
		t.Fatalf("PendingPrescriptions: %v", err)
	}
	if len(pending) != 1 || pending[0]["dosage"] != "500mg" {
		t.Errorf("GetUser leaked the stored profile: %v", pending)
	}
}
