package roles

import (
	"time"

	"github.com/ehr/clinic/internal/domain/billing"
	"github.com/ehr/clinic/internal/domain/identity"
	"github.com/ehr/clinic/internal/domain/inventory"
	"github.com/ehr/clinic/internal/domain/scheduling"
	"github.com/ehr/clinic/internal/platform/apperr"
)

type Receptionist struct {
	Staff
}

func (s *Service) Receptionist(userID int) (*Receptionist, error) {
	st, err := s.staff(userID, identity.RoleReceptionist)
	if err != nil {
		return nil, err
	}
	return &Receptionist{Staff: st}, nil
}

// -- Patients --

type PatientDetails struct {
	Name    string
	Age     int
	Gender  string
	Contact string
}

func (r *Receptionist) RegisterPatient(d PatientDetails) (*identity.Patient, error) {
	p, err := identity.NewPatient(d.Name, d.Age, d.Gender, d.Contact)
	if err != nil {
		return nil, err
	}
	out := p.Clone()
	if err := r.reg.AddPatient(p); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePatient replaces a patient's demographics, keeping their records.
func (r *Receptionist) UpdatePatient(patientID int, d PatientDetails) error {
	if err := positive(patientID, "Patient"); err != nil {
		return err
	}
	return r.reg.EditPatient(patientID, func(p *identity.Patient) error {
		p.Name, p.Age, p.Gender, p.Contact = d.Name, d.Age, d.Gender, d.Contact
		return nil
	})
}

func (r *Receptionist) DeletePatient(patientID int) error {
	if err := positive(patientID, "Patient"); err != nil {
		return err
	}
	return r.reg.DeletePatient(patientID)
}

func (r *Receptionist) SearchPatients(term string) []map[string]interface{} {
	return r.reg.SearchPatients(term)
}

// -- Appointments --

type AppointmentDetails struct {
	PatientID int
	DoctorID  int
	At        time.Time
	About     string
}

func (r *Receptionist) AddAppointment(d AppointmentDetails) (*scheduling.Appointment, error) {
	a, err := scheduling.NewAppointment(d.PatientID, d.DoctorID, d.At, d.About)
	if err != nil {
		return nil, err
	}
	out := snapshot(a)
	if err := r.reg.AddAppointment(a); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Receptionist) EditAppointment(appointmentID int, d AppointmentDetails) error {
	if err := positive(appointmentID, "Appointment"); err != nil {
		return err
	}
	return r.reg.EditAppointment(appointmentID, func(a *scheduling.Appointment) error {
		a.PatientID, a.DoctorID, a.At, a.About = d.PatientID, d.DoctorID, d.At, d.About
		return nil
	})
}

func (r *Receptionist) DeleteAppointment(appointmentID int) error {
	if err := positive(appointmentID, "Appointment"); err != nil {
		return err
	}
	return r.reg.DeleteAppointment(appointmentID)
}

// MarkAppointmentStatus overrides an appointment's status.
func (r *Receptionist) MarkAppointmentStatus(appointmentID int, status string) error {
	if err := positive(appointmentID, "Appointment"); err != nil {
		return err
	}
	if _, err := scheduling.ParseStatus(status); err != nil {
		return err
	}
	return r.reg.SetAppointmentStatus(appointmentID, status)
}

// TransitionAppointment applies a lifecycle action: cancel, complete or
// no-show.
func (r *Receptionist) TransitionAppointment(appointmentID int, action string) error {
	if err := positive(appointmentID, "Appointment"); err != nil {
		return err
	}
	return r.reg.TransitionAppointment(appointmentID, action)
}

func (r *Receptionist) UpcomingAppointments() []map[string]interface{} {
	return r.reg.UpcomingAppointments()
}

// -- Fees --

type FeeDetails struct {
	Amount      float64
	Type        billing.FeeType
	Description string
	Date        time.Time
}

func (r *Receptionist) AddFee(patientID int, d FeeDetails) (*billing.Fee, error) {
	if err := positive(patientID, "Patient"); err != nil {
		return nil, err
	}
	if d.Date.IsZero() {
		d.Date = r.reg.Now()
	}
	f, err := billing.NewFee(d.Amount, d.Type, d.Description, d.Date, patientID)
	if err != nil {
		return nil, err
	}
	out := snapshot(f)
	err = r.reg.WithPatient("add_fee", patientID, func(p *identity.Patient) error {
		return p.AddFee(f)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Receptionist) EditFee(patientID, feeID int, d FeeDetails) error {
	if err := positive(patientID, "Patient"); err != nil {
		return err
	}
	if err := positive(feeID, "Fee"); err != nil {
		return err
	}
	return r.reg.WithPatient("edit_fee", patientID, func(p *identity.Patient) error {
		stored, ok := p.Fee(feeID)
		if !ok {
			return apperr.NotFound("Fee not found")
		}
		cp := *stored
		cp.Amount, cp.Type, cp.Description = d.Amount, d.Type, d.Description
		if !d.Date.IsZero() {
			cp.Date = d.Date
		}
		return p.UpdateFee(feeID, &cp)
	})
}

func (r *Receptionist) DeleteFee(patientID, feeID int) error {
	if err := positive(patientID, "Patient"); err != nil {
		return err
	}
	if err := positive(feeID, "Fee"); err != nil {
		return err
	}
	return r.reg.WithPatient("delete_fee", patientID, func(p *identity.Patient) error {
		_, err := p.RemoveFee(feeID)
		return err
	})
}

// PayFee settles one of the patient's fees from method.
func (r *Receptionist) PayFee(patientID, feeID int, method *billing.PaymentMethod) error {
	if err := positive(patientID, "Patient"); err != nil {
		return err
	}
	if err := positive(feeID, "Fee"); err != nil {
		return err
	}
	return r.reg.PayPatientFee(patientID, feeID, method)
}

// -- Supplies --

type SupplyDetails struct {
	Name       string
	Quantity   int
	UnitPrice  float64
	Category   string
	Unit       string
	BestBefore *time.Time
	Notes      string
}

func (d SupplyDetails) apply(s *inventory.Supply) error {
	unit, err := inventory.ParseUnit(d.Unit)
	if err != nil {
		return err
	}
	s.Name, s.Category, s.Unit, s.BestBefore, s.Notes = d.Name, d.Category, unit, d.BestBefore, d.Notes
	s.SetQuantity(d.Quantity)
	s.SetUnitPrice(d.UnitPrice)
	return nil
}

func (r *Receptionist) AddSupply(d SupplyDetails) (*inventory.Supply, error) {
	s, err := inventory.NewSupply(d.Name, d.Quantity, d.UnitPrice, d.Category)
	if err != nil {
		return nil, err
	}
	if err := d.apply(s); err != nil {
		return nil, err
	}
	out := snapshot(s)
	if err := r.reg.AddSupply(s); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Receptionist) EditSupply(supplyID int, d SupplyDetails) error {
	if err := positive(supplyID, "Supply"); err != nil {
		return err
	}
	return r.reg.EditSupply(supplyID, d.apply)
}

func (r *Receptionist) DeleteSupply(supplyID int) error {
	if err := positive(supplyID, "Supply"); err != nil {
		return err
	}
	return r.reg.DeleteSupply(supplyID)
}

func (r *Receptionist) AdjustStock(supplyID, delta int) error {
	if err := positive(supplyID, "Supply"); err != nil {
		return err
	}
	return r.reg.AdjustStock(supplyID, delta)
}

// -- Admissions --

func (r *Receptionist) AdmitPatient(patientID, doctorID int, at time.Time) (*scheduling.Admission, error) {
	a, err := scheduling.NewAdmission(patientID, doctorID, at)
	if err != nil {
		return nil, err
	}
	out := snapshot(a)
	if err := r.reg.AdmitPatient(a); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Receptionist) DischargePatient(patientID int) error {
	if err := positive(patientID, "Patient"); err != nil {
		return err
	}
	return r.reg.DischargePatient(patientID)
}

// -- Finance --

// GenerateFinancialReport takes its bounds as YYYY-MM-DD strings.
func (r *Receptionist) GenerateFinancialReport(start, end string) (billing.FinancialReport, error) {
	from, err := billing.ParseReportDate(start)
	if err != nil {
		return billing.FinancialReport{}, err
	}
	to, err := billing.ParseReportDate(end)
	if err != nil {
		return billing.FinancialReport{}, err
	}
	return r.reg.GenerateFinancialReport(from, to)
}

func (r *Receptionist) RecordExpense(category string, amount float64, description string, date time.Time) (*billing.Entry, error) {
	if date.IsZero() {
		date = r.reg.Now()
	}
	e, err := billing.NewExpense(category, amount, description, date)
	if err != nil {
		return nil, err
	}
	out := snapshot(e)
	if err := r.reg.RecordExpense(e); err != nil {
		return nil, err
	}
	return out, nil
}
