package roles

import (
	"github.com/ehr/clinic/internal/domain/billing"
	"github.com/ehr/clinic/internal/domain/diagnostics"
	"github.com/ehr/clinic/internal/domain/identity"
)

// -- Pharmacist --

type Pharmacist struct {
	Staff
}

func (s *Service) Pharmacist(userID int) (*Pharmacist, error) {
	st, err := s.staff(userID, identity.RolePharmacist)
	if err != nil {
		return nil, err
	}
	return &Pharmacist{Staff: st}, nil
}

func (p *Pharmacist) Pending() ([]map[string]interface{}, error) {
	return p.reg.PendingPrescriptions(p.id)
}

func (p *Pharmacist) Approve(prescriptionID int, message string) error {
	if err := positive(prescriptionID, "Prescription"); err != nil {
		return err
	}
	return p.reg.ApprovePrescription(p.id, prescriptionID, message)
}

func (p *Pharmacist) Reject(prescriptionID int, message string) error {
	if err := positive(prescriptionID, "Prescription"); err != nil {
		return err
	}
	return p.reg.RejectPrescription(p.id, prescriptionID, message)
}

func (p *Pharmacist) DispenseQueue() []map[string]interface{} {
	return p.reg.DispenseQueue()
}

// Dispense hands out an approved prescription and returns the fee charged
// for it, nil when it was free.
func (p *Pharmacist) Dispense(prescriptionID int) (*billing.Fee, error) {
	if err := positive(prescriptionID, "Prescription"); err != nil {
		return nil, err
	}
	return p.reg.DispensePrescription(prescriptionID)
}

// -- Nurse --

type Nurse struct {
	Staff
}

func (s *Service) Nurse(userID int) (*Nurse, error) {
	st, err := s.staff(userID, identity.RoleNurse)
	if err != nil {
		return nil, err
	}
	return &Nurse{Staff: st}, nil
}

func (n *Nurse) AdministerTreatment(patientID int, medicine string) error {
	if err := positive(patientID, "Patient"); err != nil {
		return err
	}
	return n.reg.AdministerTreatment(n.id, patientID, medicine)
}

func (n *Nurse) AssistLabTest(testID int) error {
	return n.reg.AssistLabTest(n.id, testID)
}

func (n *Nurse) FinishLabAssist() error {
	return n.reg.FinishLabAssist(n.id)
}

// -- Lab personnel --

type Lab struct {
	Staff
}

func (s *Service) Lab(userID int) (*Lab, error) {
	st, err := s.staff(userID, identity.RoleLabPersonnel)
	if err != nil {
		return nil, err
	}
	return &Lab{Staff: st}, nil
}

func (l *Lab) PendingLabs() ([]map[string]interface{}, error) {
	return l.reg.PendingLabs(l.id)
}

// ReturnResult files the result of a pending request on the patient.
func (l *Lab) ReturnResult(requestID int, result string) (*diagnostics.LabResult, error) {
	if err := positive(requestID, "Lab request"); err != nil {
		return nil, err
	}
	return l.reg.ReturnLabResult(l.id, requestID, result)
}
