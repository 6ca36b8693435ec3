package apperr

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
)

func TestError_IsMatchesSentinelOfKind(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{Validation("bad %s", "age"), ErrValidation},
		{NotFound("patient %d not found", 3), ErrNotFound},
		{Conflict("dup"), ErrConflict},
		{Rule("no pharmacists employed"), ErrRule},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.want) {
			t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.want)
		}
	}
	if errors.Is(NotFound("x"), ErrConflict) {
		t.Error("not-found error must not match the conflict sentinel")
	}
}

func TestError_MessageVerbatim(t *testing.T) {
	err := Validation("Patient age must be a positive integer")
	if err.Error() != "Patient age must be a positive integer" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("paying fee: %w", Rule("Not enough balance for payment"))
	if KindOf(err) != KindRule {
		t.Errorf("KindOf = %q, want %q", KindOf(err), KindRule)
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("expected empty kind for unclassified error")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("v"), http.StatusBadRequest},
		{NotFound("n"), http.StatusNotFound},
		{Conflict("c"), http.StatusConflict},
		{Rule("r"), http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWrap_KeepsKind(t *testing.T) {
	err := Wrap(NotFound("Patient not found"), "appointment %d", 4)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found kind, got %v", err)
	}
	if err.Error() != "appointment 4: Patient not found" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if Wrap(nil, "x") != nil {
		t.Error("wrapping nil should return nil")
	}
	plain := Wrap(io.EOF, "reading")
	if !errors.Is(plain, io.EOF) || KindOf(plain) != "" {
		t.Errorf("unexpected wrap of plain error: %v", plain)
	}
}
