package identity

import (
	"github.com/ehr/clinic/internal/platform/apperr"
)

type record interface {
	comparable
	ID() int
}

// copyable is a record held by pointer whose fields are all values, so a
// struct copy is a deep copy.
type copyable[E any] interface {
	*E
	record
}

// collection is an ordered list of records owned by a patient. Update and
// remove only succeed for ids already present, and update never changes the
// id of the record it replaces.
type collection[T record] struct {
	label string
	items []T
}

func (c *collection[T]) add(item T) error {
	var zero T
	if item == zero {
		return apperr.Validation("Invalid %s object", c.label)
	}
	if c.index(item.ID()) >= 0 {
		return apperr.Conflict("%s with ID %d already exists", capitalize(c.label), item.ID())
	}
	c.items = append(c.items, item)
	return nil
}

func (c *collection[T]) get(id int) (T, bool) {
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

func (c *collection[T]) update(id int, item T) error {
	if id <= 0 {
		return apperr.Validation("Invalid %s ID", c.label)
	}
	var zero T
	if item == zero {
		return apperr.Validation("Invalid %s object", c.label)
	}
	i := c.index(id)
	if i < 0 {
		return apperr.NotFound("%s not found", capitalize(c.label))
	}
	if item.ID() != id {
		return apperr.Conflict("Cannot change %s ID", c.label)
	}
	c.items[i] = item
	return nil
}

func (c *collection[T]) remove(id int) (T, error) {
	var zero T
	if id <= 0 {
		return zero, apperr.Validation("Invalid %s ID", c.label)
	}
	i := c.index(id)
	if i < 0 {
		return zero, apperr.NotFound("%s not found", capitalize(c.label))
	}
	item := c.items[i]
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	return item, nil
}

func (c *collection[T]) list() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// cloneAll copies items and every record in them.
func cloneAll[E any, T copyable[E]](items []T) []T {
	out := make([]T, len(items))
	for i, it := range items {
		cp := *it
		out[i] = T(&cp)
	}
	return out
}

func (c *collection[T]) index(id int) int {
	for i, it := range c.items {
		if it.ID() == id {
			return i
		}
	}
	return -1
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
