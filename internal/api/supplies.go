package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/internal/roles"
	"github.com/ehr/clinic/pkg/pagination"
)

func (h *Handler) registerSupplyRoutes(g *echo.Group) {
	read := g.Group("/supplies", auth.RequireRole(roleAdmin, roleReceptionist, roleNurse, rolePharmacist))
	read.GET("", h.ListSupplies)

	desk := g.Group("/supplies", auth.RequireRole(roleReceptionist))
	desk.POST("", h.AddSupply)
	desk.PUT("/:id", h.EditSupply)
	desk.DELETE("/:id", h.DeleteSupply)
	desk.POST("/:id/stock", h.AdjustStock)
}

type supplyRequest struct {
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	Category   string  `json:"category"`
	Unit       string  `json:"unit"`
	BestBefore string  `json:"best_before"`
	Notes      string  `json:"notes"`
}

func (r supplyRequest) details() (roles.SupplyDetails, error) {
	d := roles.SupplyDetails{
		Name:      r.Name,
		Quantity:  r.Quantity,
		UnitPrice: r.UnitPrice,
		Category:  r.Category,
		Unit:      r.Unit,
		Notes:     r.Notes,
	}
	bb, err := parseDate(r.BestBefore, "best_before")
	if err != nil {
		return d, err
	}
	if !bb.IsZero() {
		d.BestBefore = &bb
	}
	return d, nil
}

type supplyList struct {
	*pagination.Response
	TotalValue float64 `json:"total_value"`
}

func (h *Handler) ListSupplies(c echo.Context) error {
	items, total := h.svc.Registry().Supplies()
	return c.JSON(http.StatusOK, supplyList{
		Response:   pagination.Page(items, pagination.FromContext(c)),
		TotalValue: total,
	})
}

func (h *Handler) AddSupply(c echo.Context) error {
	var req supplyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	d, err := req.details()
	if err != nil {
		return err
	}
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	s, err := desk.AddSupply(d)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, s.ToMap())
}

func (h *Handler) EditSupply(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var req supplyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	d, err := req.details()
	if err != nil {
		return err
	}
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	if err := desk.EditSupply(id, d); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Supply updated successfully")
}

func (h *Handler) DeleteSupply(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	if err := desk.DeleteSupply(id); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Supply deleted successfully")
}

type stockRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) AdjustStock(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var req stockRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	if err := desk.AdjustStock(id, req.Delta); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Stock updated")
}
