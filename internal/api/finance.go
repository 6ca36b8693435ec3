package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/pkg/pagination"
)

func (h *Handler) registerFinanceRoutes(g *echo.Group) {
	desk := auth.RequireRole(roleReceptionist)
	g.GET("/reports/financial", h.FinancialReport, desk)
	g.POST("/expenses", h.RecordExpense, desk)
	g.GET("/ledger", h.Ledger, desk)
}

// FinancialReport answers GET /reports/financial?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *Handler) FinancialReport(c echo.Context) error {
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	report, err := desk.GenerateFinancialReport(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, report)
}

type expenseRequest struct {
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

func (h *Handler) RecordExpense(c echo.Context) error {
	var req expenseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	date, err := parseDate(req.Date, "date")
	if err != nil {
		return err
	}
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	e, err := desk.RecordExpense(req.Category, req.Amount, req.Description, date)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, e.ToMap())
}

func (h *Handler) Ledger(c echo.Context) error {
	entries := h.svc.Registry().Ledger()
	return c.JSON(http.StatusOK, pagination.Page(entries, pagination.FromContext(c)))
}
