package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/clinic/internal/platform/auth"
)

type mockRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (m *mockRecorder) RecordAccess(entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *mockRecorder) last() AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[len(m.entries)-1]
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func auditRequest(method, target string, uid int, role string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	if uid > 0 {
		req = req.WithContext(auth.WithIdentity(req.Context(), uid, role, nil))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-123")
	return c, rec
}

func TestAudit_PatientRecordRead(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := auditRequest(http.MethodGet, "/api/patients/17/record", 4, "doctor")

	if err := Audit(zerolog.New(os.Stderr), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected 1 entry, got %d", rec.count())
	}
	got := rec.last()
	if got.UserID != 4 || got.Role != "doctor" {
		t.Errorf("unexpected caller %d/%s", got.UserID, got.Role)
	}
	if got.Resource != "patients" || got.PatientID != 17 || got.Action != "read" {
		t.Errorf("unexpected entry %+v", got)
	}
	if got.RequestID != "req-123" || got.StatusCode != http.StatusOK {
		t.Errorf("unexpected request metadata %+v", got)
	}
}

func TestAudit_ActionsAndQueryPatient(t *testing.T) {
	tests := []struct {
		method    string
		target    string
		action    string
		resource  string
		patientID int
	}{
		{http.MethodPost, "/api/appointments", "create", "appointments", 0},
		{http.MethodPut, "/api/supplies/3", "update", "supplies", 0},
		{http.MethodDelete, "/api/patients/9", "delete", "patients", 9},
		{http.MethodGet, "/api/lab/results?patient_id=12", "read", "lab", 12},
		{http.MethodGet, "/api/patients/abc", "read", "patients", 0},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := &mockRecorder{}
			c, _ := auditRequest(tt.method, tt.target, 1, "receptionist")
			_ = Audit(zerolog.Nop(), rec)(okHandler)(c)
			got := rec.last()
			if got.Action != tt.action || got.Resource != tt.resource || got.PatientID != tt.patientID {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestAudit_SkipsNonAPIPaths(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := auditRequest(http.MethodGet, "/health", 0, "")
	_ = Audit(zerolog.Nop(), rec)(okHandler)(c)
	if rec.count() != 0 {
		t.Errorf("expected no audit entry for /health")
	}
}

func TestAudit_RecorderErrorDoesNotFailRequest(t *testing.T) {
	rec := &mockRecorder{err: errors.New("disk full")}
	c, httpRec := auditRequest(http.MethodGet, "/api/patients", 2, "receptionist")
	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if httpRec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", httpRec.Code)
	}
}

func TestAudit_HandlerErrorPropagates(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := auditRequest(http.MethodPost, "/api/patients", 2, "receptionist")
	want := echo.NewHTTPError(http.StatusBadRequest, "bad")
	err := Audit(zerolog.Nop(), rec)(func(echo.Context) error { return want })(c)
	if err != want {
		t.Errorf("expected handler error, got %v", err)
	}
	if rec.count() != 1 {
		t.Errorf("failed requests are audited too")
	}
}
