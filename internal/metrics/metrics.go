// Package metrics holds the Prometheus collectors shared by the usecases.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maternal_provider_attempts_total",
		Help: "Generative provider attempts by outcome.",
	}, []string{"provider", "outcome"})

	TriageResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maternal_triage_results_total",
		Help: "Risk classifications by tier.",
	}, []string{"risk"})

	Escalations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maternal_escalations_total",
		Help: "Escalation actions by outcome.",
	}, []string{"action", "outcome"})
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
