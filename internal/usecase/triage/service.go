package triage

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"maternal-care-agent/internal/domain"
	"maternal-care-agent/internal/metrics"
	"maternal-care-agent/internal/usecase/escalation"
)

type Escalator interface {
	Escalate(ctx context.Context, req escalation.Request) *escalation.Result
}

// Outcome is a one-shot assessment. AudioAlert is set only for elevated tiers
// when speech synthesis succeeded.
type Outcome struct {
	Diagnosis  domain.TriageResult `json:"diagnosis"`
	AudioAlert []byte              `json:"audio_alert,omitempty"`
	Escalation *escalation.Result  `json:"-"`
}

// Service runs triage outside of any chat session.
type Service struct {
	classifier *Classifier
	patients   domain.PatientDirectory
	escalator  Escalator
	language   string
	log        logrus.FieldLogger
}

// NewService builds the triage flow. patients and escalator may be nil;
// language is used when the patient record carries none.
func NewService(classifier *Classifier, patients domain.PatientDirectory, escalator Escalator, language string, log logrus.FieldLogger) *Service {
	return &Service{
		classifier: classifier,
		patients:   patients,
		escalator:  escalator,
		language:   language,
		log:        log,
	}
}

func (s *Service) Triage(ctx context.Context, patientID, text string) (Outcome, error) {
	if strings.TrimSpace(patientID) == "" {
		return Outcome{}, domain.NewValidationError("patient_id", "is required")
	}
	if strings.TrimSpace(text) == "" {
		return Outcome{}, domain.NewValidationError("symptom_text", "must not be empty")
	}

	record := s.record(ctx, patientID)
	diagnosis := s.classifier.Classify(text, Patient{ID: patientID, History: record.History})
	metrics.TriageResults.WithLabelValues(string(diagnosis.Risk)).Inc()

	out := Outcome{Diagnosis: diagnosis}
	if diagnosis.Risk.Elevated() && s.escalator != nil {
		language := record.Language
		if language == "" {
			language = s.language
		}
		out.Escalation = s.escalator.Escalate(ctx, escalation.Request{
			Path:      escalation.PathTriage,
			PatientID: patientID,
			Triage:    diagnosis,
			Language:  language,
		})
		out.AudioAlert = out.Escalation.AudioAlert
	}

	s.log.WithFields(logrus.Fields{
		"patient_id": patientID,
		"condition":  diagnosis.Condition,
		"risk":       diagnosis.Risk,
		"audio":      len(out.AudioAlert) > 0,
	}).Info("triage completed")
	return out, nil
}

func (s *Service) record(ctx context.Context, patientID string) domain.PatientRecord {
	if s.patients == nil {
		return domain.PatientRecord{ID: patientID}
	}
	rec, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if !errors.Is(err, domain.ErrPatientNotFound) {
			s.log.WithError(err).WithField("patient_id", patientID).Warn("patient lookup failed")
		}
		return domain.PatientRecord{ID: patientID}
	}
	return rec
}
