package identity

import (
	"strings"

	"github.com/ehr/clinic/internal/domain/diagnostics"
	"github.com/ehr/clinic/internal/domain/ids"
	"github.com/ehr/clinic/internal/domain/medication"
	"github.com/ehr/clinic/internal/platform/apperr"
)

// Role is the job function a user signs in as. It doubles as the role claim
// carried in access tokens.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RoleReceptionist Role = "receptionist"
	RolePharmacist   Role = "pharmacist"
	RoleNurse        Role = "nurse"
	RoleLabPersonnel Role = "lab_personnel"
)

// Profile carries the role-specific state of a user. The concrete types are
// the closed set below; callers dispatch on them with a type switch.
type Profile interface {
	Role() Role
	profile()
}

type DoctorProfile struct {
	Speciality           string
	InvalidPrescriptions []*medication.Prescription
}

type PharmacistProfile struct {
	Pending []*medication.Prescription
}

type LabProfile struct {
	PendingLabs []*diagnostics.LabRequest
}

// NurseProfile tracks the lab test a nurse is assisting with; zero means none.
type NurseProfile struct {
	AssistingLabTest int
}

type ReceptionistProfile struct{}

type AdminProfile struct{}

func (*DoctorProfile) Role() Role       { return RoleDoctor }
func (*PharmacistProfile) Role() Role   { return RolePharmacist }
func (*LabProfile) Role() Role          { return RoleLabPersonnel }
func (*NurseProfile) Role() Role        { return RoleNurse }
func (*ReceptionistProfile) Role() Role { return RoleReceptionist }
func (*AdminProfile) Role() Role        { return RoleAdmin }

func (*DoctorProfile) profile()       {}
func (*PharmacistProfile) profile()   {}
func (*LabProfile) profile()          {}
func (*NurseProfile) profile()        {}
func (*ReceptionistProfile) profile() {}
func (*AdminProfile) profile()        {}

// NewProfile returns an empty profile for role.
func NewProfile(role Role) (Profile, error) {
	switch role {
	case RoleDoctor:
		return &DoctorProfile{}, nil
	case RolePharmacist:
		return &PharmacistProfile{}, nil
	case RoleLabPersonnel:
		return &LabProfile{}, nil
	case RoleNurse:
		return &NurseProfile{}, nil
	case RoleReceptionist:
		return &ReceptionistProfile{}, nil
	case RoleAdmin:
		return &AdminProfile{}, nil
	}
	return nil, apperr.Validation("Invalid role: %s", role)
}

// AccessPermission is a navigation entry the user is allowed to open.
type AccessPermission struct {
	Access     string `json:"access"`
	AccessLink string `json:"access_link"`
}

type Task struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// User is a staff account.
type User struct {
	id           int
	Username     string
	PasswordHash string
	Name         string
	Surname      string
	Profile      Profile

	Permissions    []AccessPermission
	Tasks          []Task
	WeeklyTasks    []Task
	EmergencyTasks []Task
}

// NewUser creates an account. The password hash is opaque to this package.
func NewUser(username, passwordHash, name string, profile Profile) (*User, error) {
	u := &User{Username: username, PasswordHash: passwordHash, Name: name, Profile: profile}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	u.id = ids.Next(ids.User)
	u.Permissions = defaultPermissions(profile.Role())
	return u, nil
}

func (u *User) ID() int { return u.id }

func (u *User) Role() Role {
	if u.Profile == nil {
		return ""
	}
	return u.Profile.Role()
}

func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return apperr.Validation("Username must be a non-empty string")
	}
	if u.PasswordHash == "" {
		return apperr.Validation("Password must not be empty")
	}
	if u.Profile == nil {
		return apperr.Validation("User role is required")
	}
	return nil
}

func (u *User) Doctor() (*DoctorProfile, bool) {
	p, ok := u.Profile.(*DoctorProfile)
	return p, ok
}

func (u *User) Pharmacist() (*PharmacistProfile, bool) {
	p, ok := u.Profile.(*PharmacistProfile)
	return p, ok
}

func (u *User) Lab() (*LabProfile, bool) {
	p, ok := u.Profile.(*LabProfile)
	return p, ok
}

func (u *User) Nurse() (*NurseProfile, bool) {
	p, ok := u.Profile.(*NurseProfile)
	return p, ok
}

// Clone returns a deep copy of the account, profile included.
func (u *User) Clone() *User {
	c := *u
	c.Permissions = append([]AccessPermission(nil), u.Permissions...)
	c.Tasks = append([]Task(nil), u.Tasks...)
	c.WeeklyTasks = append([]Task(nil), u.WeeklyTasks...)
	c.EmergencyTasks = append([]Task(nil), u.EmergencyTasks...)
	switch p := u.Profile.(type) {
	case *DoctorProfile:
		c.Profile = &DoctorProfile{Speciality: p.Speciality, InvalidPrescriptions: cloneAll(p.InvalidPrescriptions)}
	case *PharmacistProfile:
		c.Profile = &PharmacistProfile{Pending: cloneAll(p.Pending)}
	case *LabProfile:
		c.Profile = &LabProfile{PendingLabs: cloneAll(p.PendingLabs)}
	case *NurseProfile:
		np := *p
		c.Profile = &np
	case *ReceptionistProfile:
		c.Profile = &ReceptionistProfile{}
	case *AdminProfile:
		c.Profile = &AdminProfile{}
	}
	return &c
}

func (u *User) AddTask(title, description string) {
	u.Tasks = append(u.Tasks, newTask(title, description))
}

func (u *User) AddWeeklyTask(title, description string) {
	u.WeeklyTasks = append(u.WeeklyTasks, newTask(title, description))
}

func (u *User) AddEmergencyTask(title, description string) {
	u.EmergencyTasks = append(u.EmergencyTasks, newTask(title, description))
}

func newTask(title, description string) Task {
	return Task{ID: ids.Next(ids.Task), Title: title, Description: description}
}

// ToMap projects the account without its password hash.
func (u *User) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":              u.id,
		"username":        u.Username,
		"name":            u.Name,
		"surname":         u.Surname,
		"user_type":       string(u.Role()),
		"allow_access":    nonNil(u.Permissions),
		"tasks":           nonNil(u.Tasks),
		"weekly_tasks":    nonNil(u.WeeklyTasks),
		"emergency_tasks": nonNil(u.EmergencyTasks),
	}
	switch p := u.Profile.(type) {
	case *DoctorProfile:
		m["speciality"] = p.Speciality
		m["invalid_prescriptions"] = projectAll(p.InvalidPrescriptions)
	case *PharmacistProfile:
		m["pending_prescriptions"] = len(p.Pending)
	case *LabProfile:
		m["pending_labs"] = len(p.PendingLabs)
	case *NurseProfile:
		m["assisting_lab_test"] = p.AssistingLabTest != 0
	}
	return m
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func defaultPermissions(role Role) []AccessPermission {
	common := []AccessPermission{{Access: "Dashboard", AccessLink: "/dashboard"}}
	switch role {
	case RoleDoctor:
		return append(common,
			AccessPermission{Access: "Patients", AccessLink: "/patients"},
			AccessPermission{Access: "Appointments", AccessLink: "/appointments"},
			AccessPermission{Access: "Prescriptions", AccessLink: "/prescriptions"},
		)
	case RoleReceptionist:
		return append(common,
			AccessPermission{Access: "Patients", AccessLink: "/patients"},
			AccessPermission{Access: "Appointments", AccessLink: "/appointments"},
			AccessPermission{Access: "Supplies", AccessLink: "/supplies"},
			AccessPermission{Access: "Financials", AccessLink: "/financials"},
		)
	case RolePharmacist:
		return append(common, AccessPermission{Access: "Prescriptions", AccessLink: "/prescriptions"})
	case RoleLabPersonnel:
		return append(common, AccessPermission{Access: "Lab", AccessLink: "/lab"})
	case RoleNurse:
		return append(common, AccessPermission{Access: "Patients", AccessLink: "/patients"})
	case RoleAdmin:
		return append(common, AccessPermission{Access: "Users", AccessLink: "/users"})
	}
	return common
}
