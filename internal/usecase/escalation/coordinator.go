package escalation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"maternal-care-agent/internal/domain"
	"maternal-care-agent/internal/metrics"
	"maternal-care-agent/internal/policy"
)

const (
	PathChat   = "chat"
	PathTriage = "triage"

	ActionAlert      = "alert"
	ActionFacilities = "facilities"
	ActionNotify     = "notify"
	actionPolicy     = "policy"

	DefaultTimeout = 15 * time.Second
	DefaultRadius  = 5000
)

// FacilityFinder returns facilities near a point, nearest first.
type FacilityFinder interface {
	FindNearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]domain.Facility, error)
}

// Synthesizer renders an alert as audio. Empty audio means none was produced.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// Notifier tells a health worker about a patient.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

type Policy interface {
	Decide(ctx context.Context, input policy.Input) (policy.Decision, error)
}

// Alert is what a health worker receives.
type Alert struct {
	PatientID      string
	SessionID      string
	Condition      string
	Risk           domain.RiskTier
	Recommendation string
	Location       *domain.Coordinate
}

type Request struct {
	Path            string
	SessionID       string
	PatientID       string
	Triage          domain.TriageResult
	FacilityRequest bool
	Location        domain.Coordinate
	Language        string
	RadiusMeters    int
}

// Result reports what ran. Facilities is nil when no lookup was selected and
// an empty slice when the lookup found nothing.
type Result struct {
	Decision    policy.Decision   `json:"decision"`
	AudioAlert  []byte            `json:"audio_alert,omitempty"`
	Facilities  []domain.Facility `json:"facilities,omitempty"`
	Notified    bool              `json:"notified"`
	Unavailable []string          `json:"unavailable,omitempty"`
}

type Coordinator struct {
	policy   Policy
	finder   FacilityFinder
	speech   Synthesizer
	notifier Notifier
	timeout  time.Duration
	log      logrus.FieldLogger
}

// NewCoordinator wires the collaborators. finder, speech and notifier may be
// nil; a selected action without its collaborator is reported unavailable,
// except notify which is skipped.
func NewCoordinator(p Policy, finder FacilityFinder, speech Synthesizer, notifier Notifier, timeout time.Duration, log logrus.FieldLogger) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Coordinator{
		policy:   p,
		finder:   finder,
		speech:   speech,
		notifier: notifier,
		timeout:  timeout,
		log:      log,
	}
}

// Escalate runs the actions the policy selects. It never fails; collaborator
// errors are logged and listed in Result.Unavailable.
func (c *Coordinator) Escalate(ctx context.Context, req Request) *Result {
	res := &Result{}
	log := c.log.WithFields(logrus.Fields{
		"session_id": req.SessionID,
		"patient_id": req.PatientID,
		"risk":       req.Triage.Risk,
		"path":       req.Path,
	})

	input := policy.Input{
		Path:            req.Path,
		Risk:            string(req.Triage.Risk),
		FacilityRequest: req.FacilityRequest,
	}
	decision, err := c.policy.Decide(ctx, input)
	if err != nil {
		log.WithError(err).Error("escalation policy failed, using built-in decision")
		res.Unavailable = append(res.Unavailable, actionPolicy)
		decision = fallbackDecision(input)
	}
	res.Decision = decision
	if !decision.Any() {
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	unavailable := func(action string, err error) {
		log.WithError(fmt.Errorf("%w: %s: %v", domain.ErrUpstreamUnavailable, action, err)).Warn("escalation action degraded")
		metrics.Escalations.WithLabelValues(action, metrics.OutcomeFailure).Inc()
		mu.Lock()
		res.Unavailable = append(res.Unavailable, action)
		mu.Unlock()
	}
	succeeded := func(action string) {
		metrics.Escalations.WithLabelValues(action, metrics.OutcomeSuccess).Inc()
	}

	if decision.Alert {
		g.Go(func() error {
			if c.speech == nil {
				unavailable(ActionAlert, errNotConfigured)
				return nil
			}
			audio, err := c.speech.Synthesize(ctx, req.Triage.Recommendation, req.Language)
			if err != nil {
				unavailable(ActionAlert, err)
				return nil
			}
			mu.Lock()
			if len(audio) > 0 {
				res.AudioAlert = audio
			}
			mu.Unlock()
			succeeded(ActionAlert)
			return nil
		})
	}

	if decision.Facilities {
		g.Go(func() error {
			facilities := []domain.Facility{}
			defer func() {
				mu.Lock()
				res.Facilities = facilities
				mu.Unlock()
			}()
			if c.finder == nil {
				unavailable(ActionFacilities, errNotConfigured)
				return nil
			}
			radius := req.RadiusMeters
			if radius <= 0 {
				radius = DefaultRadius
			}
			found, err := c.finder.FindNearby(ctx, req.Location.Lat, req.Location.Lng, radius)
			if err != nil {
				unavailable(ActionFacilities, err)
				return nil
			}
			if len(found) > 0 {
				facilities = found
			}
			succeeded(ActionFacilities)
			return nil
		})
	}

	if decision.Notify && c.notifier != nil {
		g.Go(func() error {
			loc := req.Location
			err := c.notifier.Notify(ctx, Alert{
				PatientID:      req.PatientID,
				SessionID:      req.SessionID,
				Condition:      req.Triage.Condition,
				Risk:           req.Triage.Risk,
				Recommendation: req.Triage.Recommendation,
				Location:       &loc,
			})
			if err != nil {
				unavailable(ActionNotify, err)
				return nil
			}
			mu.Lock()
			res.Notified = true
			mu.Unlock()
			succeeded(ActionNotify)
			return nil
		})
	}

	_ = g.Wait()
	sort.Strings(res.Unavailable)
	return res
}

var errNotConfigured = errors.New("not configured")

// fallbackDecision mirrors policy.DefaultPolicy for when the engine errors.
func fallbackDecision(in policy.Input) policy.Decision {
	elevated := domain.RiskTier(in.Risk).Elevated()
	chat := in.Path == PathChat
	return policy.Decision{
		Alert:      elevated,
		Facilities: chat && (in.FacilityRequest || elevated),
		Notify:     domain.RiskTier(in.Risk) == domain.RiskHigh,
	}
}
