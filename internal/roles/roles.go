// Package roles exposes what each kind of staff member may do. A facade is
// bound to one signed-in user; it validates the shape of its input and
// forwards to the registry.
package roles

import (
	"errors"
	"strings"

	"github.com/ehr/clinic/internal/domain/identity"
	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/registry"
)

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type Service struct {
	reg    *registry.Registry
	hasher Hasher
}

func NewService(reg *registry.Registry, hasher Hasher) *Service {
	return &Service{reg: reg, hasher: hasher}
}

// Registry exposes the underlying registry for read-only listings.
func (s *Service) Registry() *registry.Registry { return s.reg }

// ErrInvalidCredentials is returned by Authenticate for an unknown username
// or a wrong password alike.
var ErrInvalidCredentials = errors.New("Invalid username or password")

// Authenticate checks a username and password pair and returns a copy of the
// matching account.
func (s *Service) Authenticate(username, password string) (*identity.User, error) {
	u, ok := s.reg.UserByUsername(strings.TrimSpace(username))
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Staff holds what every role can do.
type Staff struct {
	reg    *registry.Registry
	hasher Hasher
	id     int
}

func (s *Service) staff(userID int, role identity.Role) (Staff, error) {
	u, ok := s.reg.GetUser(userID)
	if !ok {
		return Staff{}, apperr.NotFound("User not found")
	}
	if u.Role() != role {
		return Staff{}, apperr.Rule("User %d is not a %s", userID, strings.ReplaceAll(string(role), "_", " "))
	}
	return Staff{reg: s.reg, hasher: s.hasher, id: userID}, nil
}

// Staff returns the role-independent facade for any registered user.
func (s *Service) Staff(userID int) (Staff, error) {
	if _, ok := s.reg.GetUser(userID); !ok {
		return Staff{}, apperr.NotFound("User not found")
	}
	return Staff{reg: s.reg, hasher: s.hasher, id: userID}, nil
}

func (s Staff) ID() int { return s.id }

// Profile projects the signed-in user's account.
func (s Staff) Profile() (map[string]interface{}, error) {
	var m map[string]interface{}
	err := s.reg.ViewUser(s.id, func(u *identity.User) { m = u.ToMap() })
	return m, err
}

func (s Staff) ChangePassword(oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return apperr.Validation("New password must be a non-empty string")
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.reg.WithUser("change_password", s.id, func(u *identity.User) error {
		if err := s.hasher.Compare(u.PasswordHash, oldPassword); err != nil {
			return apperr.Validation("Invalid password")
		}
		u.PasswordHash = hash
		return nil
	})
}

// ViewPatientRecord projects a patient's full record.
func (s Staff) ViewPatientRecord(patientID int) (map[string]interface{}, error) {
	if err := positive(patientID, "Patient"); err != nil {
		return nil, err
	}
	return s.reg.PatientRecord(patientID)
}

func positive(id int, label string) error {
	if id <= 0 {
		return apperr.Validation("%s ID must be a positive integer", label)
	}
	return nil
}

// snapshot copies a record before the registry takes ownership of it, so the
// facade never returns a pointer the registry shares.
func snapshot[E any](p *E) *E {
	cp := *p
	return &cp
}
