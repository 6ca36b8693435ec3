package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/ehr/clinic/internal/domain/medication"
	"github.com/ehr/clinic/internal/platform/apperr"
)

func TestNewUser(t *testing.T) {
	u, err := NewUser("drhouse", "hash", "Gregory", &DoctorProfile{Speciality: "diagnostics"})
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	if u.Role() != RoleDoctor {
		t.Errorf("expected doctor role, got %s", u.Role())
	}
	if len(u.Permissions) == 0 {
		t.Error("expected default permissions")
	}
	d, ok := u.Doctor()
	if !ok || d.Speciality != "diagnostics" {
		t.Errorf("Doctor() = %v, %v", d, ok)
	}
	if _, ok := u.Pharmacist(); ok {
		t.Error("doctor must not expose a pharmacist profile")
	}
	if _, ok := u.ToMap()["password_hash"]; ok {
		t.Error("projection must not include the password hash")
	}
}

func TestNewUser_Validation(t *testing.T) {
	if _, err := NewUser("", "hash", "", &NurseProfile{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for empty username, got %v", err)
	}
	if _, err := NewUser("n", "", "", &NurseProfile{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for empty password, got %v", err)
	}
	if _, err := NewUser("n", "hash", "", nil); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for nil profile, got %v", err)
	}
}

func TestNewProfile(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleDoctor, RoleReceptionist, RolePharmacist, RoleNurse, RoleLabPersonnel} {
		p, err := NewProfile(r)
		if err != nil {
			t.Fatalf("NewProfile(%s): %v", r, err)
		}
		if p.Role() != r {
			t.Errorf("NewProfile(%s).Role() = %s", r, p.Role())
		}
	}
	if _, err := NewProfile("janitor"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestUser_Tasks(t *testing.T) {
	u, _ := NewUser("rec", "hash", "Pam", &ReceptionistProfile{})
	u.AddTask("call", "call back patient 4")
	u.AddWeeklyTask("stock", "count gloves")
	u.AddEmergencyTask("triage", "")
	if len(u.Tasks) != 1 || len(u.WeeklyTasks) != 1 || len(u.EmergencyTasks) != 1 {
		t.Fatalf("unexpected task lists %+v", u)
	}
	if u.Tasks[0].ID == u.WeeklyTasks[0].ID {
		t.Error("task ids must be unique")
	}
}

func TestUser_CloneIsolatesProfile(t *testing.T) {
	rx, err := medication.NewPrescription(1, 2, "Ibuprofen", "200mg", 4, time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewPrescription: %v", err)
	}
	u, err := NewUser("rx", "hash", "Rita", &PharmacistProfile{Pending: []*medication.Prescription{rx}})
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	u.AddTask("count stock", "")

	c := u.Clone()
	prof, ok := c.Pharmacist()
	if !ok {
		t.Fatalf("clone lost its profile type: %T", c.Profile)
	}
	prof.Pending[0].Dosage = "400mg"
	prof.Pending = nil
	c.Tasks[0].Title = "changed"

	orig, _ := u.Pharmacist()
	if len(orig.Pending) != 1 || orig.Pending[0].Dosage != "200mg" {
		t.Errorf("clone edits leaked into the original profile: %+v", orig.Pending)
	}
	if u.Tasks[0].Title != "count stock" {
		t.Errorf("clone shares tasks, got %q", u.Tasks[0].Title)
	}
	if c.ID() != u.ID() {
		t.Errorf("clone id %d, want %d", c.ID(), u.ID())
	}
}
