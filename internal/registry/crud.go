package registry

import (
	"sort"

	"github.com/ehr/clinic/internal/platform/apperr"
)

type entity interface {
	comparable
	ID() int
	Validate() error
}

// Every top-level collection follows the same contract: add rejects a
// present id, update requires the id to be present and unchanged, delete
// requires it to be present. A failed call leaves the map untouched.

func addTo[T entity](m map[int]T, e T, label string) error {
	var zero T
	if e == zero {
		return apperr.Validation("Invalid %s object", label)
	}
	if e.ID() <= 0 {
		return apperr.Validation("Invalid %s ID", label)
	}
	if _, ok := m[e.ID()]; ok {
		return apperr.Conflict("%s with ID %d already exists", title(label), e.ID())
	}
	if err := e.Validate(); err != nil {
		return err
	}
	m[e.ID()] = e
	return nil
}

func updateIn[T entity](m map[int]T, id int, e T, label string) error {
	var zero T
	if e == zero {
		return apperr.Validation("Invalid %s object", label)
	}
	if _, ok := m[id]; !ok {
		return apperr.NotFound("%s not found", title(label))
	}
	if e.ID() != id {
		return apperr.Conflict("Cannot change %s ID", label)
	}
	if err := e.Validate(); err != nil {
		return err
	}
	m[id] = e
	return nil
}

// editIn applies fn to a copy of the stored entity and stores the copy only if
// fn succeeds and the result still validates. Callers hold the write lock, so
// the read and the write are one step.
func editIn[T entity](m map[int]T, id int, label string, clone func(T) T, fn func(T) error) error {
	cur, ok := m[id]
	if !ok {
		return apperr.NotFound("%s not found", title(label))
	}
	e := clone(cur)
	if err := fn(e); err != nil {
		return err
	}
	return updateIn(m, id, e, label)
}

func copyOf[E any](p *E) *E {
	cp := *p
	return &cp
}

func deleteFrom[T entity](m map[int]T, id int, label string) error {
	if _, ok := m[id]; !ok {
		return apperr.NotFound("%s not found", title(label))
	}
	delete(m, id)
	return nil
}

// sortedValues returns the map's values ordered by id.
func sortedValues[T entity](m map[int]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func title(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
