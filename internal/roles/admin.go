package roles

import (
	"strings"

	"github.com/ehr/clinic/internal/domain/identity"
	"github.com/ehr/clinic/internal/platform/apperr"
)

// Admin manages staff accounts.
type Admin struct {
	Staff
}

func (s *Service) Admin(userID int) (*Admin, error) {
	st, err := s.staff(userID, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return &Admin{Staff: st}, nil
}

type UserDetails struct {
	Username   string
	Password   string
	Name       string
	Surname    string
	Role       identity.Role
	Speciality string
}

// CreateUser registers a staff account with a freshly hashed password.
func (a *Admin) CreateUser(d UserDetails) (*identity.User, error) {
	if strings.TrimSpace(d.Password) == "" {
		return nil, apperr.Validation("Password must be a non-empty string")
	}
	profile, err := identity.NewProfile(d.Role)
	if err != nil {
		return nil, err
	}
	if doc, ok := profile.(*identity.DoctorProfile); ok {
		doc.Speciality = d.Speciality
	}
	hash, err := a.hasher.Hash(d.Password)
	if err != nil {
		return nil, err
	}
	u, err := identity.NewUser(d.Username, hash, d.Name, profile)
	if err != nil {
		return nil, err
	}
	u.Surname = d.Surname
	out := u.Clone()
	if err := a.reg.AddUser(u); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteUser removes an account other than the caller's own.
func (a *Admin) DeleteUser(userID int) error {
	if err := positive(userID, "User"); err != nil {
		return err
	}
	if userID == a.id {
		return apperr.Rule("Cannot delete your own account")
	}
	return a.reg.DeleteUser(userID)
}

// Users lists every account, or only those with role when it is set.
func (a *Admin) Users(role identity.Role) []map[string]interface{} {
	if role == "" {
		return a.reg.Users()
	}
	return a.reg.UsersByRole(role)
}
