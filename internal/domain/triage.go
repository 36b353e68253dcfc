package domain

// RiskTier is the ordinal severity of reported symptoms.
type RiskTier string

const (
	RiskLow    RiskTier = "LOW"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

// Severity orders tiers: LOW < MEDIUM < HIGH. Unknown tiers rank below LOW.
func (r RiskTier) Severity() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	}
	return 0
}

// Elevated reports whether the tier warrants escalation.
func (r RiskTier) Elevated() bool {
	return r.Severity() >= RiskMedium.Severity()
}

type TriageResult struct {
	Condition      string   `json:"condition"`
	Risk           RiskTier `json:"risk"`
	Recommendation string   `json:"recommendation"`
	PatientID      string   `json:"patient_id"`
}
