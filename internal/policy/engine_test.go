package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyDecisions(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	tests := []struct {
		name  string
		input Input
		want  Decision
	}{
		{"low chat", Input{Path: "chat", Risk: "LOW"}, Decision{}},
		{"low chat facility request", Input{Path: "chat", Risk: "LOW", FacilityRequest: true}, Decision{Facilities: true}},
		{"medium chat", Input{Path: "chat", Risk: "MEDIUM"}, Decision{Alert: true, Facilities: true}},
		{"high chat", Input{Path: "chat", Risk: "HIGH"}, Decision{Alert: true, Facilities: true, Notify: true}},
		{"medium triage", Input{Path: "triage", Risk: "MEDIUM"}, Decision{Alert: true}},
		{"high triage", Input{Path: "triage", Risk: "HIGH"}, Decision{Alert: true, Notify: true}},
		{"low triage", Input{Path: "triage", Risk: "LOW", FacilityRequest: true}, Decision{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Decide(ctx, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPolicyFromFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "escalation.rego")
	custom := `
package escalation

decision = {"alert": true, "facilities": false, "notify": false}
`
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o600))

	engine, err := NewEngineFromFile(ctx, path)
	require.NoError(t, err)

	got, err := engine.Decide(ctx, Input{Path: "chat", Risk: "LOW"})
	require.NoError(t, err)
	assert.Equal(t, Decision{Alert: true}, got)
}

func TestInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package escalation\n decision = {")
	assert.Error(t, err)
}

func TestUndefinedDecisionSelectsNothing(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, "package escalation\n\nother = true\n")
	require.NoError(t, err)

	got, err := engine.Decide(ctx, Input{Path: "chat", Risk: "HIGH"})
	require.NoError(t, err)
	assert.False(t, got.Any())
}
