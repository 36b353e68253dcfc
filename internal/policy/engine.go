// Package policy evaluates the escalation policy with OPA.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
)

// Input is the document the policy is evaluated against.
type Input struct {
	Path            string `json:"path"` // "chat" or "triage"
	Risk            string `json:"risk"`
	FacilityRequest bool   `json:"facility_request"`
}

// Decision lists the escalation actions to run.
type Decision struct {
	Alert      bool `json:"alert"`
	Facilities bool `json:"facilities"`
	Notify     bool `json:"notify"`
}

// Any reports whether at least one action was selected.
func (d Decision) Any() bool {
	return d.Alert || d.Facilities || d.Notify
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine compiles policyContent; the module must define
// data.escalation.decision.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.escalation.decision"),
		rego.Module("escalation.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewEngineFromFile loads the policy from path, or DefaultPolicy when path is empty.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy %s: %w", path, err)
	}
	return NewEngine(ctx, string(content))
}

// Decide evaluates the policy. An undefined decision selects no action.
func (e *Engine) Decide(ctx context.Context, input Input) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("unexpected decision type %T", results[0].Expressions[0].Value)
	}
	return Decision{
		Alert:      flag(obj, "alert"),
		Facilities: flag(obj, "facilities"),
		Notify:     flag(obj, "notify"),
	}, nil
}

func flag(obj map[string]interface{}, key string) bool {
	b, _ := obj[key].(bool)
	return b
}

// DefaultPolicy alerts on MEDIUM and HIGH, looks up facilities in the chat
// path when asked or when risk is elevated, and notifies a health worker on HIGH.
const DefaultPolicy = `
package escalation

default alert = false
default facilities = false
default notify = false

elevated {
	input.risk == "HIGH"
}

elevated {
	input.risk == "MEDIUM"
}

alert {
	elevated
}

facilities {
	input.path == "chat"
	input.facility_request
}

facilities {
	input.path == "chat"
	elevated
}

notify {
	input.risk == "HIGH"
}

decision = {"alert": alert, "facilities": facilities, "notify": notify}
`
