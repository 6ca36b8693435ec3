package sandbox

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// SeedConfig controls the volume of generated synthetic data.
type SeedConfig struct {
	PatientCount           int   `json:"patientCount"`
	DoctorCount            int   `json:"doctorCount"`
	AppointmentsPerPatient int   `json:"appointmentsPerPatient"`
	FeesPerPatient         int   `json:"feesPerPatient"`
	SupplyCount            int   `json:"supplyCount"`
	Seed                   int64 `json:"seed"`
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		PatientCount:           25,
		DoctorCount:            3,
		AppointmentsPerPatient: 2,
		FeesPerPatient:         1,
		SupplyCount:            8,
	}
}

// withDefaults fills zero counts. Negative counts are treated as zero.
func (c SeedConfig) withDefaults() SeedConfig {
	if c.PatientCount == 0 {
		c.PatientCount = 10
	}
	if c.DoctorCount <= 0 {
		c.DoctorCount = 1
	}
	if c.PatientCount < 0 {
		c.PatientCount = 0
	}
	if c.AppointmentsPerPatient < 0 {
		c.AppointmentsPerPatient = 0
	}
	if c.FeesPerPatient < 0 {
		c.FeesPerPatient = 0
	}
	if c.SupplyCount < 0 {
		c.SupplyCount = 0
	}
	return c
}

var (
	firstNamesMale = []string{
		"James", "Robert", "John", "Michael", "David", "William", "Richard",
		"Joseph", "Thomas", "Charles", "Daniel", "Matthew", "Anthony", "Mark",
	}
	firstNamesFemale = []string{
		"Mary", "Patricia", "Jennifer", "Linda", "Elizabeth", "Barbara", "Susan",
		"Jessica", "Sarah", "Karen", "Lisa", "Nancy", "Betty", "Margaret",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
		"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Wilson",
		"Anderson", "Thomas", "Taylor", "Moore", "Jackson", "Martin", "Lee",
	}
	specialities = []string{
		"Family Medicine", "Internal Medicine", "Cardiology", "Pediatrics",
		"Dermatology", "Orthopedics", "Neurology", "Endocrinology",
	}
	visitReasons = []string{
		"Annual check-up", "Follow-up visit", "Persistent cough",
		"Blood pressure review", "Lab results discussion", "Back pain",
		"Medication review", "Skin rash", "Headaches",
	}
	historyEntries = []string{
		"Hypertension", "Type 2 diabetes", "Asthma", "Seasonal allergies",
		"Appendectomy", "Migraine", "Hyperlipidemia", "Penicillin allergy",
	}
	feeDescriptions = map[string][]string{
		"doctor": {"Consultation", "Follow-up consultation", "Specialist referral"},
		"lab":    {"Complete blood count", "Metabolic panel", "Urinalysis"},
		"other":  {"Medical certificate", "Records copy"},
	}
	supplyCatalog = []SupplyFixture{
		{Name: "Gauze pads", UnitPrice: 0.25, Category: "consumable", Unit: "piece"},
		{Name: "Nitrile gloves", UnitPrice: 0.08, Category: "ppe", Unit: "piece"},
		{Name: "Saline solution", UnitPrice: 3.1, Category: "fluids", Unit: "l"},
		{Name: "Syringes 5ml", UnitPrice: 0.15, Category: "consumable", Unit: "piece"},
		{Name: "Alcohol swabs", UnitPrice: 0.03, Category: "consumable", Unit: "piece"},
		{Name: "Paracetamol 500mg", UnitPrice: 0.05, Category: "medication", Unit: "unit"},
		{Name: "Ibuprofen 200mg", UnitPrice: 0.07, Category: "medication", Unit: "unit"},
		{Name: "Surgical masks", UnitPrice: 0.12, Category: "ppe", Unit: "piece"},
		{Name: "Bandage rolls", UnitPrice: 0.9, Category: "consumable", Unit: "piece"},
		{Name: "Hand sanitizer", UnitPrice: 4.5, Category: "hygiene", Unit: "l"},
	}
)

// GeneratedPassword is the password of every generated staff account.
const GeneratedPassword = "changeme"

// DataGenerator produces reproducible synthetic fixtures.
type DataGenerator struct {
	rng     *rand.Rand
	counter int
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed is
// 0 a time-based seed is chosen.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) randomPhone() string {
	return fmt.Sprintf("(%03d) %03d-%04d", 200+g.rng.Intn(800), 200+g.rng.Intn(800), g.rng.Intn(10000))
}

func (g *DataGenerator) name() (first, last, gender string) {
	if g.rng.Intn(2) == 0 {
		return g.pick(firstNamesMale), g.pick(lastNames), "M"
	}
	return g.pick(firstNamesFemale), g.pick(lastNames), "F"
}

// GenerateDoctor returns a doctor account with a unique username.
func (g *DataGenerator) GenerateDoctor() UserFixture {
	first, last, _ := g.name()
	g.counter++
	return UserFixture{
		Username:   fmt.Sprintf("dr.%s%d", strings.ToLower(last), g.counter),
		Password:   GeneratedPassword,
		Name:       first,
		Surname:    last,
		Role:       "doctor",
		Speciality: g.pick(specialities),
	}
}

// GeneratePatient returns a patient whose name carries a numeric suffix so
// appointment references stay unambiguous.
func (g *DataGenerator) GeneratePatient(fees int) PatientFixture {
	first, last, gender := g.name()
	g.counter++
	p := PatientFixture{
		Name:    fmt.Sprintf("%s %s %d", first, last, g.counter),
		Age:     1 + g.rng.Intn(95),
		Gender:  gender,
		Contact: g.randomPhone(),
	}
	if g.rng.Intn(3) > 0 {
		p.History = append(p.History, g.pick(historyEntries))
	}
	for i := 0; i < fees; i++ {
		p.Fees = append(p.Fees, g.GenerateFee())
	}
	return p
}

func (g *DataGenerator) GenerateFee() FeeFixture {
	types := []string{"doctor", "lab", "other"}
	t := types[g.rng.Intn(len(types))]
	return FeeFixture{
		Amount:      float64(20+g.rng.Intn(180)) + float64(g.rng.Intn(4))*0.25,
		Type:        t,
		Description: g.pick(feeDescriptions[t]),
		Date:        fmt.Sprintf("-%dd", g.rng.Intn(30)),
	}
}

// GenerateAppointment books patient with doctor within two weeks either side
// of today. Past appointments are completed or missed.
func (g *DataGenerator) GenerateAppointment(patient, doctor string) AppointmentFixture {
	offset := g.rng.Intn(29) - 14
	a := AppointmentFixture{
		Patient: patient,
		Doctor:  doctor,
		Date:    fmt.Sprintf("%+dd", offset),
		Time:    fmt.Sprintf("%02d:%02d", 8+g.rng.Intn(9), 15*g.rng.Intn(4)),
		About:   g.pick(visitReasons),
	}
	if offset < 0 {
		a.Status = "completed"
		if g.rng.Intn(5) == 0 {
			a.Status = "no-show"
		}
	}
	return a
}

// Generate builds a fixture according to cfg.
func (g *DataGenerator) Generate(cfg SeedConfig) *Fixture {
	cfg = cfg.withDefaults()
	f := &Fixture{}
	for i := 0; i < cfg.DoctorCount; i++ {
		f.Users = append(f.Users, g.GenerateDoctor())
	}
	for i := 0; i < cfg.PatientCount; i++ {
		p := g.GeneratePatient(cfg.FeesPerPatient)
		f.Patients = append(f.Patients, p)
		for j := 0; j < cfg.AppointmentsPerPatient; j++ {
			doctor := f.Users[g.rng.Intn(len(f.Users))].Username
			f.Appointments = append(f.Appointments, g.GenerateAppointment(p.Name, doctor))
		}
	}
	for _, i := range g.rng.Perm(len(supplyCatalog)) {
		if len(f.Supplies) >= cfg.SupplyCount {
			break
		}
		s := supplyCatalog[i]
		s.Quantity = 10 * (1 + g.rng.Intn(50))
		f.Supplies = append(f.Supplies, s)
	}
	return f
}
