package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"maternal-care-agent/internal/config"
	"maternal-care-agent/internal/domain"
	"maternal-care-agent/internal/metrics"
	"maternal-care-agent/internal/usecase/escalation"
	"maternal-care-agent/internal/usecase/triage"
)

// DefaultEscalationBudget caps how long a chat reply waits for its
// escalation actions.
const DefaultEscalationBudget = 4 * time.Second

// FacilityKeywords mark a message as asking for a nearby facility.
var FacilityKeywords = []string{"hospital", "clinic", "doctor", "near me", "nearby"}

func IsFacilityRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range FacilityKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

type Escalator interface {
	Escalate(ctx context.Context, req escalation.Request) *escalation.Result
}

type Request struct {
	SessionID string
	PatientID string
	Text      string
	Location  *domain.Coordinate
}

type Result struct {
	Reply      string
	SessionID  string
	Source     string
	Triage     domain.TriageResult
	Escalation *escalation.Result
	Timestamp  time.Time
}

type Service struct {
	store      domain.SessionStore
	chain      *Chain
	classifier *triage.Classifier
	escalator  Escalator
	cfg        config.Config
	log        logrus.FieldLogger
	now        func() time.Time
}

// NewService builds the orchestrator. escalator may be nil.
func NewService(store domain.SessionStore, chain *Chain, classifier *triage.Classifier, escalator Escalator, cfg config.Config, log logrus.FieldLogger) *Service {
	return &Service{
		store:      store,
		chain:      chain,
		classifier: classifier,
		escalator:  escalator,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// StartSession opens a session for patientID.
func (s *Service) StartSession(ctx context.Context, patientID string) (string, error) {
	if strings.TrimSpace(patientID) == "" {
		return "", domain.NewValidationError("patient_id", "is required")
	}
	return s.store.CreateSession(ctx, patientID)
}

func (s *Service) HandleMessage(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Result{}, domain.NewValidationError("message", "must not be empty")
	}

	sessionID := req.SessionID
	if sessionID == "" {
		id, err := s.StartSession(ctx, req.PatientID)
		if err != nil {
			return Result{}, err
		}
		sessionID = id
	}
	log := s.log.WithField("session_id", sessionID)

	if req.Location != nil {
		if !s.store.UpdateContext(ctx, sessionID, domain.Context{domain.ContextLocation: *req.Location}) {
			log.Debug("location not stored")
		}
	}

	if err := s.store.AppendMessage(ctx, sessionID, domain.RoleUser, req.Text); err != nil {
		return Result{}, fmt.Errorf("append user message: %w", err)
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("load session: %w", err)
	}

	assessment := s.classifier.Classify(req.Text, triage.Patient{ID: session.PatientID})
	metrics.TriageResults.WithLabelValues(string(assessment.Risk)).Inc()
	s.store.ModifyContext(ctx, sessionID, recordAssessment(assessment))

	reply := s.chain.Generate(ctx, conversation(session.Messages))
	if err := s.store.AppendMessage(ctx, sessionID, domain.RoleAssistant, reply.Text); err != nil {
		return Result{}, fmt.Errorf("append assistant message: %w", err)
	}

	res := Result{
		Reply:     reply.Text,
		SessionID: sessionID,
		Source:    reply.Source,
		Triage:    assessment,
		Timestamp: s.now(),
	}

	facilityRequest := IsFacilityRequest(req.Text)
	if s.escalator != nil && (facilityRequest || assessment.Risk.Elevated()) {
		escCtx, cancel := context.WithTimeout(ctx, s.escalationBudget())
		defer cancel()
		res.Escalation = s.escalator.Escalate(escCtx, escalation.Request{
			Path:            escalation.PathChat,
			SessionID:       sessionID,
			PatientID:       session.PatientID,
			Triage:          assessment,
			FacilityRequest: facilityRequest,
			Location:        s.location(session.Context, req.Location),
			Language:        s.cfg.AlertLanguage,
			RadiusMeters:    s.cfg.FacilityRadiusMeters,
		})
	}

	log.WithFields(logrus.Fields{
		"source":    reply.Source,
		"risk":      assessment.Risk,
		"condition": assessment.Condition,
	}).Info("message handled")
	return res, nil
}

// History returns a snapshot of the session.
func (s *Service) History(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// UpdateContext merges partial into the session context.
func (s *Service) UpdateContext(ctx context.Context, sessionID string, partial domain.Context) error {
	if !s.store.UpdateContext(ctx, sessionID, partial) {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Service) escalationBudget() time.Duration {
	if s.cfg.ChatEscalationTimeout > 0 {
		return s.cfg.ChatEscalationTimeout
	}
	return DefaultEscalationBudget
}

func (s *Service) location(stored domain.Context, perCall *domain.Coordinate) domain.Coordinate {
	if loc, ok := stored.Location(); ok {
		return loc
	}
	if perCall != nil {
		return *perCall
	}
	return domain.Coordinate{Lat: s.cfg.DefaultLatitude, Lng: s.cfg.DefaultLongitude}
}

// recordAssessment stores the latest tier and appends a matched condition
// once.
func recordAssessment(assessment domain.TriageResult) func(domain.Context) {
	return func(c domain.Context) {
		c[domain.ContextRiskLevel] = string(assessment.Risk)
		if assessment.Condition == triage.NoUrgentIssue {
			return
		}
		symptoms := c.Symptoms()
		for _, s := range symptoms {
			if s == assessment.Condition {
				return
			}
		}
		c[domain.ContextCurrentSymptoms] = append(symptoms, assessment.Condition)
	}
}

func conversation(messages []domain.Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if !domain.IsConversationRole(m.Role) {
			continue
		}
		out = append(out, Message{Role: m.Role, Content: m.Content})
	}
	return out
}
