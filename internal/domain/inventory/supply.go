// Package inventory tracks clinic stock.
package inventory

import (
	"strings"
	"time"

	"github.com/ehr/clinic/internal/domain/ids"
	"github.com/ehr/clinic/internal/platform/apperr"
)

// Unit is the measure a supply is counted in.
type Unit string

const (
	UnitKilogram   Unit = "kg"
	UnitGram       Unit = "g"
	UnitMilligram  Unit = "mg"
	UnitLitre      Unit = "l"
	UnitMillilitre Unit = "ml"
	UnitUnit       Unit = "unit"
	UnitPiece      Unit = "piece"
)

var validUnits = map[Unit]bool{
	UnitKilogram: true, UnitGram: true, UnitMilligram: true,
	UnitLitre: true, UnitMillilitre: true, UnitUnit: true, UnitPiece: true,
}

func ParseUnit(s string) (Unit, error) {
	if s == "" {
		return UnitPiece, nil
	}
	u := Unit(strings.ToLower(s))
	if !validUnits[u] {
		return "", apperr.Validation("Invalid unit: %s", s)
	}
	return u, nil
}

// Supply is a stocked item. Quantity and unit price never go below zero:
// negative inputs are clamped.
type Supply struct {
	id         int
	Name       string
	Category   string
	Unit       Unit
	BestBefore *time.Time
	Notes      string
	quantity   int
	unitPrice  float64
}

func NewSupply(name string, quantity int, unitPrice float64, category string) (*Supply, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation("Supply name must be a non-empty string")
	}
	s := &Supply{
		id:       ids.Next(ids.Supply),
		Name:     name,
		Category: category,
		Unit:     UnitPiece,
	}
	s.SetQuantity(quantity)
	s.SetUnitPrice(unitPrice)
	return s, nil
}

func (s *Supply) ID() int { return s.id }

func (s *Supply) Quantity() int { return s.quantity }

func (s *Supply) UnitPrice() float64 { return s.unitPrice }

func (s *Supply) SetQuantity(q int) {
	s.quantity = max(0, q)
}

func (s *Supply) SetUnitPrice(p float64) {
	s.unitPrice = max(0, p)
}

func (s *Supply) TotalValue() float64 {
	return float64(s.quantity) * s.unitPrice
}

// AddCount increases stock by n.
func (s *Supply) AddCount(n int) error {
	if n < 0 {
		return apperr.Validation("Invalid count")
	}
	s.quantity += n
	return nil
}

// RemoveCount takes n out of stock, refusing to go below zero.
func (s *Supply) RemoveCount(n int) error {
	if n < 0 {
		return apperr.Validation("Invalid count")
	}
	if s.quantity-n < 0 {
		return apperr.Rule("Not enough supply")
	}
	s.quantity -= n
	return nil
}

func (s *Supply) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return apperr.Validation("Supply name must be a non-empty string")
	}
	if !validUnits[s.Unit] {
		return apperr.Validation("Invalid unit: %s", s.Unit)
	}
	return nil
}

func (s *Supply) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":          s.id,
		"name":        s.Name,
		"quantity":    s.quantity,
		"unit_price":  s.unitPrice,
		"category":    s.Category,
		"unit":        string(s.Unit),
		"total_value": s.TotalValue(),
		"notes":       s.Notes,
	}
	if s.BestBefore != nil {
		m["best_before"] = s.BestBefore.Format(time.DateOnly)
	}
	return m
}
