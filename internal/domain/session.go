package domain

import "time"

// Context keys every session carries.
const (
	ContextRiskLevel       = "risk_level"
	ContextCurrentSymptoms = "current_symptoms"
	ContextPatientHistory  = "patient_history"
	ContextLocation        = "location"
)

// Session is one conversation thread tied to a patient.
type Session struct {
	ID        string    `json:"session_id"`
	PatientID string    `json:"patient_id"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
	Context   Context   `json:"context"`
}

// Clone returns a copy that shares no mutable state with s.
func (s Session) Clone() Session {
	out := s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Context = s.Context.Clone()
	return out
}

// Context is the free-form key/value bag attached to a session.
type Context map[string]any

// DefaultContext is installed on every new session.
func DefaultContext() Context {
	return Context{
		ContextRiskLevel:       string(RiskLow),
		ContextCurrentSymptoms: []string{},
		ContextPatientHistory:  []any{},
	}
}

// Merge copies every key of partial into c, leaving other keys untouched.
func (c Context) Merge(partial Context) {
	for k, v := range partial {
		c[k] = cloneValue(v)
	}
}

func (c Context) Clone() Context {
	if c == nil {
		return nil
	}
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

// RiskLevel returns the most recent classification stored on the session.
func (c Context) RiskLevel() RiskTier {
	switch v := c[ContextRiskLevel].(type) {
	case RiskTier:
		return v
	case string:
		return RiskTier(v)
	}
	return RiskLow
}

// Symptoms returns the recorded symptom conditions.
func (c Context) Symptoms() []string {
	switch v := c[ContextCurrentSymptoms].(type) {
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Location extracts the stored coordinate. It accepts both the typed value the
// orchestrator writes and the {"lat": .., "lng": ..} object HTTP clients send.
func (c Context) Location() (Coordinate, bool) {
	switch v := c[ContextLocation].(type) {
	case Coordinate:
		return v, true
	case *Coordinate:
		if v != nil {
			return *v, true
		}
	case map[string]any:
		lat, okLat := toFloat(v["lat"])
		lng, okLng := toFloat(v["lng"])
		if okLat && okLng {
			return Coordinate{Lat: lat, Lng: lng}, true
		}
	}
	return Coordinate{}, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		if t == nil {
			return t
		}
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case Context:
		return t.Clone()
	}
	return v
}
