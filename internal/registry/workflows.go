package registry

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ehr/clinic/internal/domain/billing"
	"github.com/ehr/clinic/internal/domain/diagnostics"
	"github.com/ehr/clinic/internal/domain/identity"
	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/platform/events"
)

// Every workflow below checks all of its preconditions before the first
// mutation, so a failure leaves the registry as it was.

// -- Pharmacy --

func (r *Registry) pharmacist(id int) (*identity.PharmacistProfile, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperr.NotFound("Pharmacist not found")
	}
	ph, ok := u.Pharmacist()
	if !ok {
		return nil, apperr.NotFound("Pharmacist not found")
	}
	return ph, nil
}

func findByID[T interface{ ID() int }](items []T, id int) int {
	return slices.IndexFunc(items, func(it T) bool { return it.ID() == id })
}

// PendingPrescriptions projects the prescriptions waiting for a pharmacist.
func (r *Registry) PendingPrescriptions(pharmacistID int) ([]map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ph, err := r.pharmacist(pharmacistID)
	if err != nil {
		return nil, err
	}
	return project(ph.Pending), nil
}

// ApprovePrescription records a positive verdict, files the prescription on
// the patient's record and queues it for dispense.
func (r *Registry) ApprovePrescription(pharmacistID, prescriptionID int, message string) error {
	return r.mutate("approve_prescription", func() ([]events.Event, error) {
		ph, err := r.pharmacist(pharmacistID)
		if err != nil {
			return nil, err
		}
		i := findByID(ph.Pending, prescriptionID)
		if i < 0 {
			return nil, apperr.NotFound("Prescription not in your pending list")
		}
		rx := ph.Pending[i]
		p, ok := r.patients[rx.PatientID]
		if !ok {
			return nil, apperr.NotFound("Patient not found")
		}
		if err := p.AddPrescription(rx); err != nil {
			return nil, err
		}
		rx.Review(true, message)
		ph.Pending = slices.Delete(ph.Pending, i, i+1)
		r.dispenseQueue = append(r.dispenseQueue, rx)

		return one(events.New(events.PrescriptionApproved, map[string]interface{}{
			"prescription_id": rx.ID(),
			"pharmacist_id":   pharmacistID,
			"patient_id":      rx.PatientID,
		})), nil
	})
}

// RejectPrescription records a negative verdict and sends the prescription
// back to the doctor who issued it.
func (r *Registry) RejectPrescription(pharmacistID, prescriptionID int, message string) error {
	return r.mutate("reject_prescription", func() ([]events.Event, error) {
		ph, err := r.pharmacist(pharmacistID)
		if err != nil {
			return nil, err
		}
		i := findByID(ph.Pending, prescriptionID)
		if i < 0 {
			return nil, apperr.NotFound("Prescription not in your pending list")
		}
		rx := ph.Pending[i]
		_, doc, ok := r.doctor(rx.DoctorID)
		if !ok {
			return nil, apperr.NotFound("Could not find the doctor issuing the prescription")
		}
		rx.Review(false, message)
		doc.InvalidPrescriptions = append(doc.InvalidPrescriptions, rx)
		ph.Pending = slices.Delete(ph.Pending, i, i+1)

		return one(events.New(events.PrescriptionRejected, map[string]interface{}{
			"prescription_id": rx.ID(),
			"pharmacist_id":   pharmacistID,
			"doctor_id":       rx.DoctorID,
			"message":         message,
		})), nil
	})
}

// DispenseQueue projects the approved prescriptions awaiting dispense.
func (r *Registry) DispenseQueue() []map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return project(r.dispenseQueue)
}

// DispensePrescription takes a prescription off the dispense queue and
// charges its amount to the patient as a medication fee. A free
// prescription produces no fee and a nil result.
func (r *Registry) DispensePrescription(prescriptionID int) (*billing.Fee, error) {
	var charged *billing.Fee
	err := r.mutate("dispense_prescription", func() ([]events.Event, error) {
		i := findByID(r.dispenseQueue, prescriptionID)
		if i < 0 {
			return nil, apperr.NotFound("Prescription is not awaiting dispense")
		}
		rx := r.dispenseQueue[i]
		p, ok := r.patients[rx.PatientID]
		if !ok {
			return nil, apperr.NotFound("Patient not found")
		}
		if rx.Amount > 0 {
			fee, err := billing.NewFee(rx.Amount, billing.FeeMedication,
				fmt.Sprintf("%s %s", rx.Medication, rx.Dosage), r.now(), p.ID())
			if err != nil {
				return nil, err
			}
			if err := p.AddFee(fee); err != nil {
				return nil, err
			}
			cp := *fee
			charged = &cp
		}
		r.dispenseQueue = slices.Delete(r.dispenseQueue, i, i+1)

		data := map[string]interface{}{
			"prescription_id": rx.ID(),
			"patient_id":      rx.PatientID,
		}
		if charged != nil {
			data["fee_id"] = charged.ID()
			data["amount"] = charged.Amount
		}
		return one(events.New(events.PrescriptionDispensed, data)), nil
	})
	return charged, err
}

// InvalidPrescriptions projects the prescriptions pharmacists returned to a
// doctor.
func (r *Registry) InvalidPrescriptions(doctorID int) ([]map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, doc, ok := r.doctor(doctorID)
	if !ok {
		return nil, apperr.NotFound("Doctor not found")
	}
	return project(doc.InvalidPrescriptions), nil
}

// -- Laboratory --

func (r *Registry) lab(id int) (*identity.LabProfile, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperr.NotFound("No lab personnel found with specified id")
	}
	lab, ok := u.Lab()
	if !ok {
		return nil, apperr.NotFound("No lab personnel found with specified id")
	}
	return lab, nil
}

func (r *Registry) PendingLabs(labPersonnelID int) ([]map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lab, err := r.lab(labPersonnelID)
	if err != nil {
		return nil, err
	}
	return project(lab.PendingLabs), nil
}

// ReturnLabResult completes a pending lab request: the request leaves the
// lab member's queue and its result is added to the patient.
func (r *Registry) ReturnLabResult(labPersonnelID, requestID int, result string) (*diagnostics.LabResult, error) {
	var out *diagnostics.LabResult
	err := r.mutate("return_lab_result", func() ([]events.Event, error) {
		lab, err := r.lab(labPersonnelID)
		if err != nil {
			return nil, err
		}
		i := findByID(lab.PendingLabs, requestID)
		if i < 0 {
			return nil, apperr.NotFound("Unable to find the pending lab request")
		}
		req := lab.PendingLabs[i]
		p, ok := r.patients[req.PatientID]
		if !ok {
			return nil, apperr.NotFound("Unable to find patient of the lab request")
		}
		res, err := diagnostics.NewLabResult(req.ID(), req.Type, result, r.now())
		if err != nil {
			return nil, err
		}
		if err := p.AddLabResult(res); err != nil {
			return nil, err
		}
		lab.PendingLabs = slices.Delete(lab.PendingLabs, i, i+1)
		cp := *res
		out = &cp

		return one(events.New(events.LabResultReturned, map[string]interface{}{
			"lab_request_id":   req.ID(),
			"lab_result_id":    res.ID(),
			"patient_id":       req.PatientID,
			"lab_personnel_id": labPersonnelID,
		})), nil
	})
	return out, err
}

// -- Nursing --

func (r *Registry) nurse(id int) (*identity.User, *identity.NurseProfile, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil, apperr.NotFound("Nurse not found")
	}
	n, ok := u.Nurse()
	if !ok {
		return nil, nil, apperr.NotFound("Nurse not found")
	}
	return u, n, nil
}

// AssistLabTest marks a nurse as assisting with a lab test. A nurse assists
// with one test at a time.
func (r *Registry) AssistLabTest(nurseID, testID int) error {
	return r.mutate("assist_lab_test", func() ([]events.Event, error) {
		_, n, err := r.nurse(nurseID)
		if err != nil {
			return nil, err
		}
		if testID <= 0 {
			return nil, apperr.Validation("Invalid lab test ID")
		}
		if n.AssistingLabTest != 0 {
			return nil, apperr.Rule("Already assisting with another lab test")
		}
		n.AssistingLabTest = testID
		return nil, nil
	})
}

func (r *Registry) FinishLabAssist(nurseID int) error {
	return r.mutate("finish_lab_assist", func() ([]events.Event, error) {
		_, n, err := r.nurse(nurseID)
		if err != nil {
			return nil, err
		}
		if n.AssistingLabTest == 0 {
			return nil, apperr.Rule("Not assisting with any lab test")
		}
		n.AssistingLabTest = 0
		return nil, nil
	})
}

// AdministerTreatment notes on the patient's history that a nurse gave them
// medicine.
func (r *Registry) AdministerTreatment(nurseID, patientID int, medicine string) error {
	return r.mutate("administer_treatment", func() ([]events.Event, error) {
		u, _, err := r.nurse(nurseID)
		if err != nil {
			return nil, err
		}
		p, ok := r.patients[patientID]
		if !ok {
			return nil, apperr.NotFound("Patient not found")
		}
		if strings.TrimSpace(medicine) == "" {
			return nil, apperr.Validation("Medicine must be a non-empty string")
		}
		entry := fmt.Sprintf("%s: administered %s (nurse %s)", r.now().Format("2006-01-02 15:04"), medicine, u.Username)
		return nil, p.AddHistoryEntry(entry)
	})
}

type projector interface {
	ToMap() map[string]interface{}
}

func project[T projector](items []T) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		out = append(out, it.ToMap())
	}
	return out
}
