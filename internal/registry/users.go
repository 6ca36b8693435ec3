package registry

import (
	"strings"

	"github.com/ehr/clinic/internal/domain/identity"
	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/platform/events"
)

// AddUser registers a staff account. Usernames are unique, compared
// case-insensitively.
func (r *Registry) AddUser(u *identity.User) error {
	return r.mutate("add_user", func() ([]events.Event, error) {
		if u != nil {
			if other := r.userByUsername(u.Username); other != nil && other.ID() != u.ID() {
				return nil, apperr.Conflict("Username %s is already taken", u.Username)
			}
		}
		return nil, addTo(r.users, u, "user")
	})
}

func (r *Registry) UpdateUser(id int, u *identity.User) error {
	return r.mutate("update_user", func() ([]events.Event, error) {
		if u != nil {
			if other := r.userByUsername(u.Username); other != nil && other.ID() != id {
				return nil, apperr.Conflict("Username %s is already taken", u.Username)
			}
		}
		return nil, updateIn(r.users, id, u, "user")
	})
}

// DeleteUser removes an account. Pharmacists and lab staff with queued work
// cannot be removed until their queue is empty.
func (r *Registry) DeleteUser(id int) error {
	return r.mutate("delete_user", func() ([]events.Event, error) {
		if u, ok := r.users[id]; ok {
			switch p := u.Profile.(type) {
			case *identity.PharmacistProfile:
				if len(p.Pending) > 0 {
					return nil, apperr.Conflict("Cannot delete a pharmacist with pending prescriptions")
				}
			case *identity.LabProfile:
				if len(p.PendingLabs) > 0 {
					return nil, apperr.Conflict("Cannot delete lab personnel with pending lab requests")
				}
			}
		}
		return nil, deleteFrom(r.users, id, "user")
	})
}

// GetUser returns a deep copy of the account.
func (r *Registry) GetUser(id int) (*identity.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, false
	}
	return u.Clone(), true
}

func (r *Registry) UserByUsername(username string) (*identity.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u := r.userByUsername(username)
	if u == nil {
		return nil, false
	}
	return u.Clone(), true
}

func (r *Registry) userByUsername(username string) *identity.User {
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			return u
		}
	}
	return nil
}

// ViewUser calls fn with the stored account under the read lock. fn must not
// retain or modify it.
func (r *Registry) ViewUser(id int, fn func(*identity.User)) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return apperr.NotFound("User not found")
	}
	fn(u)
	return nil
}

// WithUser runs fn against the stored account under the write lock.
func (r *Registry) WithUser(op string, id int, fn func(*identity.User) error) error {
	return r.mutate(op, func() ([]events.Event, error) {
		u, ok := r.users[id]
		if !ok {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fn(u)
	})
}

// Users projects every account, ordered by id.
func (r *Registry) Users() []map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []map[string]interface{}{}
	for _, u := range sortedValues(r.users) {
		out = append(out, u.ToMap())
	}
	return out
}

// UsersByRole projects the accounts holding role, ordered by id.
func (r *Registry) UsersByRole(role identity.Role) []map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []map[string]interface{}{}
	for _, u := range r.usersByRole(role) {
		out = append(out, u.ToMap())
	}
	return out
}

func (r *Registry) usersByRole(role identity.Role) []*identity.User {
	var out []*identity.User
	for _, u := range sortedValues(r.users) {
		if u.Role() == role {
			out = append(out, u)
		}
	}
	return out
}

func (r *Registry) doctor(id int) (*identity.User, *identity.DoctorProfile, bool) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil, false
	}
	d, ok := u.Doctor()
	return u, d, ok
}
