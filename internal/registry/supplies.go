package registry

import (
	"github.com/ehr/clinic/internal/domain/inventory"
	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/platform/events"
)

func (r *Registry) AddSupply(s *inventory.Supply) error {
	return r.mutate("add_supply", func() ([]events.Event, error) {
		return nil, addTo(r.supplies, s, "supply")
	})
}

func (r *Registry) UpdateSupply(id int, s *inventory.Supply) error {
	return r.mutate("update_supply", func() ([]events.Event, error) {
		return nil, updateIn(r.supplies, id, s, "supply")
	})
}

// EditSupply applies fn to a copy of the stored supply.
func (r *Registry) EditSupply(id int, fn func(*inventory.Supply) error) error {
	return r.mutate("edit_supply", func() ([]events.Event, error) {
		return nil, editIn(r.supplies, id, "supply", copyOf[inventory.Supply], fn)
	})
}

func (r *Registry) DeleteSupply(id int) error {
	return r.mutate("delete_supply", func() ([]events.Event, error) {
		return nil, deleteFrom(r.supplies, id, "supply")
	})
}

// GetSupply returns a copy of the stored supply.
func (r *Registry) GetSupply(id int) (*inventory.Supply, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.supplies[id]
	if !ok {
		return nil, false
	}
	cp := *s
	return &cp, true
}

// AdjustStock adds delta units to a supply, or removes them when delta is
// negative. Removal never takes stock below zero.
func (r *Registry) AdjustStock(id, delta int) error {
	return r.mutate("adjust_stock", func() ([]events.Event, error) {
		s, ok := r.supplies[id]
		if !ok {
			return nil, apperr.NotFound("Supply not found")
		}
		if delta < 0 {
			return nil, s.RemoveCount(-delta)
		}
		return nil, s.AddCount(delta)
	})
}

// Supplies projects every supply ordered by id, with the stock's total value.
func (r *Registry) Supplies() ([]map[string]interface{}, float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []map[string]interface{}{}
	var total float64
	for _, s := range sortedValues(r.supplies) {
		out = append(out, s.ToMap())
		total += s.TotalValue()
	}
	return out, total
}
