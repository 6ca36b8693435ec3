package sandbox

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/clinic/internal/domain/billing"
	"github.com/ehr/clinic/internal/domain/identity"
	"github.com/ehr/clinic/internal/domain/inventory"
	"github.com/ehr/clinic/internal/domain/scheduling"
	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/registry"
)

// Hasher turns fixture passwords into stored hashes.
type Hasher interface {
	Hash(password string) (string, error)
}

// SeedResult summarizes what a fixture added to the registry.
type SeedResult struct {
	Users        int           `json:"users"`
	Patients     int           `json:"patients"`
	Fees         int           `json:"fees"`
	Supplies     int           `json:"supplies"`
	Appointments int           `json:"appointments"`
	Expenses     int           `json:"expenses"`
	Duration     time.Duration `json:"duration"`
}

type Seeder struct {
	reg    *registry.Registry
	hasher Hasher
	logger zerolog.Logger
}

func NewSeeder(reg *registry.Registry, hasher Hasher, logger zerolog.Logger) *Seeder {
	return &Seeder{reg: reg, hasher: hasher, logger: logger.With().Str("component", "seeder").Logger()}
}

// Apply loads f into the registry in dependency order: users, patients,
// supplies, appointments, expenses. It stops at the first failing record;
// records already applied stay in place.
func (s *Seeder) Apply(f *Fixture) (*SeedResult, error) {
	start := time.Now()
	now := s.reg.Now()
	res := &SeedResult{}

	users := make(map[string]int, len(f.Users))
	for _, uf := range f.Users {
		id, err := s.addUser(uf)
		if err != nil {
			return res, apperr.Wrap(err, "user %s", uf.Username)
		}
		users[strings.ToLower(uf.Username)] = id
		res.Users++
	}

	patients := make(map[string]int, len(f.Patients))
	for _, pf := range f.Patients {
		id, fees, err := s.addPatient(pf, now)
		if err != nil {
			return res, apperr.Wrap(err, "patient %s", pf.Name)
		}
		patients[pf.Name] = id
		res.Patients++
		res.Fees += fees
	}

	for _, sf := range f.Supplies {
		if err := s.addSupply(sf); err != nil {
			return res, apperr.Wrap(err, "supply %s", sf.Name)
		}
		res.Supplies++
	}

	for _, af := range f.Appointments {
		if err := s.addAppointment(af, patients, users, now); err != nil {
			return res, apperr.Wrap(err, "appointment for %s", af.Patient)
		}
		res.Appointments++
	}

	for _, ef := range f.Expenses {
		date, err := parseDay(ef.Date, now)
		if err != nil {
			return res, apperr.Validation("expense %s: %v", ef.Description, err)
		}
		e, err := billing.NewExpense(ef.Category, ef.Amount, ef.Description, date)
		if err != nil {
			return res, err
		}
		if err := s.reg.RecordExpense(e); err != nil {
			return res, err
		}
		res.Expenses++
	}

	res.Duration = time.Since(start)
	s.logger.Info().
		Int("users", res.Users).
		Int("patients", res.Patients).
		Int("appointments", res.Appointments).
		Int("supplies", res.Supplies).
		Dur("duration", res.Duration).
		Msg("fixture applied")
	return res, nil
}

func (s *Seeder) addUser(uf UserFixture) (int, error) {
	if uf.Password == "" {
		return 0, apperr.Validation("password is required")
	}
	profile, err := identity.NewProfile(identity.Role(uf.Role))
	if err != nil {
		return 0, err
	}
	if d, ok := profile.(*identity.DoctorProfile); ok {
		d.Speciality = uf.Speciality
	}
	hash, err := s.hasher.Hash(uf.Password)
	if err != nil {
		return 0, err
	}
	u, err := identity.NewUser(uf.Username, hash, uf.Name, profile)
	if err != nil {
		return 0, err
	}
	u.Surname = uf.Surname
	if err := s.reg.AddUser(u); err != nil {
		return 0, err
	}
	return u.ID(), nil
}

func (s *Seeder) addPatient(pf PatientFixture, now time.Time) (int, int, error) {
	p, err := identity.NewPatient(pf.Name, pf.Age, pf.Gender, pf.Contact)
	if err != nil {
		return 0, 0, err
	}
	for _, h := range pf.History {
		if err := p.AddHistoryEntry(h); err != nil {
			return 0, 0, err
		}
	}
	for _, ff := range pf.Fees {
		t, err := billing.ParseFeeType(ff.Type)
		if err != nil {
			return 0, 0, err
		}
		date, err := parseDay(ff.Date, now)
		if err != nil {
			return 0, 0, apperr.Validation("fee %s: %v", ff.Description, err)
		}
		fee, err := billing.NewFee(ff.Amount, t, ff.Description, date, p.ID())
		if err != nil {
			return 0, 0, err
		}
		if err := p.AddFee(fee); err != nil {
			return 0, 0, err
		}
	}
	if err := s.reg.AddPatient(p); err != nil {
		return 0, 0, err
	}
	return p.ID(), len(pf.Fees), nil
}

func (s *Seeder) addSupply(sf SupplyFixture) error {
	unit, err := inventory.ParseUnit(sf.Unit)
	if err != nil {
		return err
	}
	sup, err := inventory.NewSupply(sf.Name, sf.Quantity, sf.UnitPrice, sf.Category)
	if err != nil {
		return err
	}
	sup.Unit = unit
	return s.reg.AddSupply(sup)
}

func (s *Seeder) addAppointment(af AppointmentFixture, patients, users map[string]int, now time.Time) error {
	pid, ok := patients[af.Patient]
	if !ok {
		return apperr.NotFound("unknown patient %q", af.Patient)
	}
	did, ok := users[strings.ToLower(af.Doctor)]
	if !ok {
		u, found := s.reg.UserByUsername(af.Doctor)
		if !found {
			return apperr.NotFound("unknown doctor %q", af.Doctor)
		}
		did = u.ID()
	}
	day, err := parseDay(af.Date, now)
	if err != nil {
		return apperr.Validation("%v", err)
	}
	clock, err := parseClock(af.Time)
	if err != nil {
		return apperr.Validation("%v", err)
	}
	a, err := scheduling.NewAppointment(pid, did, day.Add(clock), af.About)
	if err != nil {
		return err
	}
	if err := s.reg.AddAppointment(a); err != nil {
		return err
	}
	if af.Status != "" && af.Status != string(scheduling.StatusScheduled) {
		return s.reg.SetAppointmentStatus(a.ID(), af.Status)
	}
	return nil
}
