package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperation_LabelsByKind(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveOperation("pay_fee", nil)
	c.ObserveOperation("pay_fee", apperr.Rule("Not enough balance for payment"))
	c.ObserveOperation("pay_fee", errors.New("boom"))

	if got := testutil.ToFloat64(c.TransactionsTotal.WithLabelValues("pay_fee", "ok")); got != 1 {
		t.Errorf("ok count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.TransactionsTotal.WithLabelValues("pay_fee", "rule_violation")); got != 1 {
		t.Errorf("rule_violation count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.TransactionsTotal.WithLabelValues("pay_fee", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestNewCollector_Independent(t *testing.T) {
	// Two collectors on private registries must not panic on registration.
	a := NewCollector(nil)
	b := NewCollector(nil)
	a.ObserveEvent("published")
	if got := testutil.ToFloat64(b.EventsTotal.WithLabelValues("published")); got != 0 {
		t.Errorf("collectors share state: %v", got)
	}
}

func TestMiddleware_RecordsRequest(t *testing.T) {
	c := NewCollector(nil)
	e := echo.New()
	e.Use(c.Middleware())
	e.GET("/api/patients/:id", func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(c.Handler()))

	req := httptest.NewRequest(http.MethodGet, "/api/patients/7", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := testutil.ToFloat64(c.RequestsTotal.WithLabelValues("GET", "/api/patients/:id", "200")); got != 1 {
		t.Errorf("requests_total = %v, want 1", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), "clinic_http_requests_total") {
		t.Error("metrics endpoint should expose clinic_http_requests_total")
	}
}
