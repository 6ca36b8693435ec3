package sandbox

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/clinic/internal/domain/scheduling"
	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/registry"
)

var seedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }

func newTestSeeder(t *testing.T) (*Seeder, *registry.Registry) {
	t.Helper()
	reg := registry.New(registry.WithClock(func() time.Time { return seedNow }))
	return NewSeeder(reg, plainHasher{}, zerolog.Nop()), reg
}

func TestDemoFixture_Applies(t *testing.T) {
	f, err := DemoFixture()
	if err != nil {
		t.Fatalf("DemoFixture: %v", err)
	}
	s, reg := newTestSeeder(t)
	res, err := s.Apply(f)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Users != 7 || res.Patients != 3 || res.Fees != 2 || res.Supplies != 3 || res.Appointments != 3 || res.Expenses != 2 {
		t.Errorf("unexpected result %+v", res)
	}

	admin, ok := reg.UserByUsername("admin")
	if !ok {
		t.Fatal("admin not seeded")
	}
	if admin.PasswordHash != "hashed:admin123" {
		t.Errorf("password not hashed: %q", admin.PasswordHash)
	}
	house, _ := reg.UserByUsername("drhouse")
	if d, ok := house.Doctor(); !ok || d.Speciality != "Diagnostics" {
		t.Errorf("doctor profile not set: %+v", house.Profile)
	}

	var completed int
	for _, a := range reg.Appointments(nil) {
		if a["status"] == string(scheduling.StatusCompleted) {
			completed++
		}
	}
	if completed != 1 {
		t.Errorf("expected one completed appointment, got %d", completed)
	}
	if got := len(reg.Ledger()); got != 2 {
		t.Errorf("expected 2 ledger entries, got %d", got)
	}
}

func TestLoadFixture_RejectsUnknownKeys(t *testing.T) {
	_, err := LoadFixture(strings.NewReader("patients:\n  - name: A\n    blood_type: O\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadFixture_Empty(t *testing.T) {
	f, err := LoadFixture(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Users) != 0 {
		t.Errorf("expected empty fixture")
	}
}

func TestApply_UnknownReferences(t *testing.T) {
	s, _ := newTestSeeder(t)
	f := &Fixture{
		Patients:     []PatientFixture{{Name: "Ada", Age: 30, Gender: "F", Contact: "555"}},
		Appointments: []AppointmentFixture{{Patient: "Ada", Doctor: "nobody", Date: "+1d"}},
	}
	res, err := s.Apply(f)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !strings.Contains(err.Error(), "appointment for Ada") {
		t.Errorf("missing context in %q", err.Error())
	}
	if res.Patients != 1 || res.Appointments != 0 {
		t.Errorf("unexpected partial result %+v", res)
	}
}

func TestApply_InvalidRole(t *testing.T) {
	s, _ := newTestSeeder(t)
	_, err := s.Apply(&Fixture{Users: []UserFixture{{Username: "x", Password: "p", Name: "X", Role: "janitor"}}})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"+2d", time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"-10d", time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"2024-12-31", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseDay(tt.in, seedNow)
		if err != nil {
			t.Fatalf("parseDay(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseDay(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"+xd", "31/12/2024"} {
		if _, err := parseDay(bad, seedNow); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
	if d, err := parseClock("14:30"); err != nil || d != 14*time.Hour+30*time.Minute {
		t.Errorf("parseClock = %v, %v", d, err)
	}
}

func TestDataGenerator_Deterministic(t *testing.T) {
	cfg := SeedConfig{PatientCount: 5, DoctorCount: 2, AppointmentsPerPatient: 2, FeesPerPatient: 1, SupplyCount: 3, Seed: 42}
	a, _ := NewDataGenerator(42).Generate(cfg).Marshal()
	b, _ := NewDataGenerator(42).Generate(cfg).Marshal()
	if !bytes.Equal(a, b) {
		t.Error("same seed should produce the same fixture")
	}

	f := NewDataGenerator(42).Generate(cfg)
	if len(f.Users) != 2 || len(f.Patients) != 5 || len(f.Appointments) != 10 || len(f.Supplies) != 3 {
		t.Errorf("unexpected sizes: %d users, %d patients, %d appointments, %d supplies",
			len(f.Users), len(f.Patients), len(f.Appointments), len(f.Supplies))
	}

	s, _ := newTestSeeder(t)
	if _, err := s.Apply(f); err != nil {
		t.Fatalf("generated fixture should apply: %v", err)
	}
}

func TestSeedHandler(t *testing.T) {
	s, reg := newTestSeeder(t)
	h := NewSeedHandler(s)
	e := echo.New()
	h.RegisterRoutes(e.Group("/api/admin"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/export", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 before seeding, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/seed", strings.NewReader(`{"patientCount":3,"seed":7}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := len(reg.Patients()); got != 3 {
		t.Errorf("expected 3 patients, got %d", got)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/export", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "patients:") {
		t.Errorf("unexpected export: %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/admin/fixture", strings.NewReader("supplies:\n  - name: Tape\n    quantity: 4\n    unit_price: 1\n    category: consumable\n"))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/admin/fixture", strings.NewReader("bogus: 1\n"))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
