package diagnostics

import (
	"strings"
	"time"

	"github.com/ehr/clinic/internal/domain/ids"
	"github.com/ehr/clinic/internal/platform/apperr"
)

// LabRequest is a test ordered by a doctor and queued with one member of the
// lab staff until its result is returned.
type LabRequest struct {
	id        int
	PatientID int
	Type      string
	Date      time.Time
	Time      time.Time
}

func NewLabRequest(patientID int, requestType string, at time.Time) (*LabRequest, error) {
	if patientID <= 0 {
		return nil, apperr.Validation("Patient ID must be a positive integer")
	}
	if strings.TrimSpace(requestType) == "" {
		return nil, apperr.Validation("Lab request type must be a non-empty string")
	}
	if at.IsZero() {
		return nil, apperr.Validation("Lab request date is required")
	}
	return &LabRequest{
		id:        ids.Next(ids.LabRequest),
		PatientID: patientID,
		Type:      requestType,
		Date:      at,
		Time:      at,
	}, nil
}

func (r *LabRequest) ID() int { return r.id }

func (r *LabRequest) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"id":         r.id,
		"patient_id": r.PatientID,
		"type":       r.Type,
		"date":       r.Date.Format(time.DateOnly),
		"time":       r.Time.Format(time.TimeOnly),
	}
}

// LabResult is the outcome of a lab request, stored on the patient.
type LabResult struct {
	id        int
	RequestID int
	Type      string
	Result    string
	Date      time.Time
}

func NewLabResult(requestID int, resultType, result string, date time.Time) (*LabResult, error) {
	if strings.TrimSpace(result) == "" {
		return nil, apperr.Validation("Lab result must be a non-empty string")
	}
	return &LabResult{
		id:        ids.Next(ids.LabResult),
		RequestID: requestID,
		Type:      resultType,
		Result:    result,
		Date:      date,
	}, nil
}

func (r *LabResult) ID() int { return r.id }

func (r *LabResult) Validate() error {
	if strings.TrimSpace(r.Result) == "" {
		return apperr.Validation("Lab result must be a non-empty string")
	}
	return nil
}

func (r *LabResult) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         r.id,
		"request_id": r.RequestID,
		"type":       r.Type,
		"result":     r.Result,
	}
	if !r.Date.IsZero() {
		m["date"] = r.Date.Format(time.DateOnly)
	}
	return m
}
