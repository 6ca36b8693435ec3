package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/ehr/clinic/internal/platform/apperr"
)

var at = time.Date(2025, 7, 14, 10, 15, 0, 0, time.UTC)

func newAppt(t *testing.T) *Appointment {
	t.Helper()
	a, err := NewAppointment(1, 2, at, "checkup")
	if err != nil {
		t.Fatalf("NewAppointment: %v", err)
	}
	return a
}

func TestNewAppointment_StartsScheduled(t *testing.T) {
	a := newAppt(t)
	if a.Status() != StatusScheduled {
		t.Errorf("expected scheduled, got %s", a.Status())
	}
	m := a.ToMap()
	if m["date"] != "2025-07-14" || m["time"] != "10:15:00" || m["about"] != "checkup" {
		t.Errorf("unexpected projection %v", m)
	}
}

func TestNewAppointment_Validation(t *testing.T) {
	if _, err := NewAppointment(0, 2, at, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for patient id, got %v", err)
	}
	if _, err := NewAppointment(1, -1, at, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for doctor id, got %v", err)
	}
	if _, err := NewAppointment(1, 2, time.Time{}, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for date, got %v", err)
	}
}

// Each guarded method is checked from every starting state.
func TestAppointment_TransitionLaw(t *testing.T) {
	type op struct {
		name string
		call func(*Appointment) error
		ok   map[Status]bool
		want Status
	}
	ops := []op{
		{"cancel", (*Appointment).Cancel,
			map[Status]bool{StatusScheduled: true, StatusCancelled: true, StatusNoShow: true}, StatusCancelled},
		{"complete", (*Appointment).MarkCompleted,
			map[Status]bool{StatusScheduled: true, StatusCompleted: true}, StatusCompleted},
		{"no-show", (*Appointment).MarkNoShow,
			map[Status]bool{StatusScheduled: true}, StatusNoShow},
	}
	for _, o := range ops {
		for _, from := range ValidStatuses {
			a := newAppt(t)
			if err := a.UpdateStatus(string(from)); err != nil {
				t.Fatalf("UpdateStatus(%s): %v", from, err)
			}
			err := o.call(a)
			if o.ok[from] {
				if err != nil {
					t.Errorf("%s from %s: unexpected error %v", o.name, from, err)
				}
				if a.Status() != o.want {
					t.Errorf("%s from %s: status %s, want %s", o.name, from, a.Status(), o.want)
				}
				continue
			}
			if !errors.Is(err, apperr.ErrRule) {
				t.Errorf("%s from %s: expected rule violation, got %v", o.name, from, err)
			}
			if a.Status() != from {
				t.Errorf("%s from %s: failed transition changed status to %s", o.name, from, a.Status())
			}
		}
	}
}

func TestAppointment_CompleteThenCancel(t *testing.T) {
	a := newAppt(t)
	if err := a.MarkCompleted(); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if a.Status() != StatusCompleted {
		t.Fatalf("expected completed, got %s", a.Status())
	}
	err := a.Cancel()
	if err == nil {
		t.Fatal("expected cancel of completed appointment to fail")
	}
	if err.Error() != "Cannot cancel a completed appointment" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if a.Status() != StatusCompleted {
		t.Errorf("status changed to %s", a.Status())
	}
}

func TestAppointment_UpdateStatusOverride(t *testing.T) {
	a := newAppt(t)
	_ = a.MarkCompleted()
	if err := a.UpdateStatus("Cancelled"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if a.Status() != StatusCancelled {
		t.Errorf("override should bypass guards, got %s", a.Status())
	}
	if err := a.UpdateStatus("postponed"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if a.Status() != StatusCancelled {
		t.Errorf("invalid override changed status to %s", a.Status())
	}
}

func TestAppointment_Transition(t *testing.T) {
	a := newAppt(t)
	if err := a.Transition("no_show"); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if err := a.Transition("reschedule"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestNewAdmission(t *testing.T) {
	ad, err := NewAdmission(3, 4, at)
	if err != nil {
		t.Fatalf("NewAdmission: %v", err)
	}
	if ad.ToMap()["time"] != "10:15:00" {
		t.Errorf("unexpected projection %v", ad.ToMap())
	}
	if _, err := NewAdmission(3, 0, at); err == nil {
		t.Error("expected error for missing doctor")
	}
}
