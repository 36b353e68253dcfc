package domain

import (
	"context"
	"errors"
)

var ErrPatientNotFound = errors.New("patient not found")

// PatientRecord is the demographic and history record a triage uses.
type PatientRecord struct {
	ID       string         `json:"patient_id"`
	Name     string         `json:"name,omitempty"`
	Language string         `json:"language,omitempty"`
	History  map[string]any `json:"history,omitempty"`
}

type PatientDirectory interface {
	Get(ctx context.Context, patientID string) (PatientRecord, error)
}
