package triage

import (
	"strings"

	"maternal-care-agent/internal/domain"
)

// NoUrgentIssue is the condition reported when no rule matches.
const NoUrgentIssue = "no_urgent_issue_detected"

// Rule maps any of its keywords to a fixed risk tier and recommendation.
type Rule struct {
	Condition      string
	Keywords       []string
	Risk           domain.RiskTier
	Recommendation string
}

// DefaultRules is the ranked rule list. Order is the tie-breaker: the first
// rule with a keyword contained in the input wins, regardless of keyword
// specificity or tier. Every HIGH rule ranks above fever so that a bleeding or
// labour keyword is never downgraded by a co-occurring fever keyword.
var DefaultRules = []Rule{
	{
		Condition:      "pre_eclampsia",
		Keywords:       []string{"headache", "blurred vision", "swelling", "swollen hands", "see clearly"},
		Risk:           domain.RiskHigh,
		Recommendation: "Potential pre-eclampsia. This is serious. Please go to your nearest clinic immediately for a blood pressure check and urine test.",
	},
	{
		Condition:      "obstetric_emergency",
		Keywords:       []string{"water broke", "severe pain", "contractions"},
		Risk:           domain.RiskHigh,
		Recommendation: "These signs may mean labour or an obstetric emergency. Please go to the nearest hospital immediately or call emergency services.",
	},
	{
		Condition:      "bleeding",
		Keywords:       []string{"bleeding", "blood", "spotting"},
		Risk:           domain.RiskHigh,
		Recommendation: "Bleeding during pregnancy requires immediate medical attention. Please go to the nearest clinic or hospital right away.",
	},
	{
		Condition:      "fever",
		Keywords:       []string{"fever", "hot", "chills", "temperature"},
		Risk:           domain.RiskMedium,
		Recommendation: "A fever during pregnancy can be dangerous. Please contact your community health worker or visit a clinic within 24 hours.",
	},
}

// NormalRecommendation accompanies the LOW default.
const NormalRecommendation = "Thank you for checking in. This sounds within normal range, but always contact a health worker if you are worried."

// Patient is the context a classification is made for. History is accepted
// but does not influence the decision; only ID is stamped on the result.
type Patient struct {
	ID      string
	History map[string]any
}

// Classifier is deterministic and side-effect free; safe for concurrent use.
type Classifier struct {
	rules []Rule
}

func NewClassifier(rules []Rule) *Classifier {
	normalized := make([]Rule, len(rules))
	for i, r := range rules {
		kw := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kw = append(kw, k)
			}
		}
		r.Keywords = kw
		normalized[i] = r
	}
	return &Classifier{rules: normalized}
}

// Rules returns the ranked rules in evaluation order.
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

func (c *Classifier) Classify(text string, patient Patient) domain.TriageResult {
	if rule, ok := c.match(text); ok {
		return domain.TriageResult{
			Condition:      rule.Condition,
			Risk:           rule.Risk,
			Recommendation: rule.Recommendation,
			PatientID:      patient.ID,
		}
	}
	return domain.TriageResult{
		Condition:      NoUrgentIssue,
		Risk:           domain.RiskLow,
		Recommendation: NormalRecommendation,
		PatientID:      patient.ID,
	}
}

func (c *Classifier) match(text string) (Rule, bool) {
	lower := strings.ToLower(text)
	for _, r := range c.rules {
		for _, k := range r.Keywords {
			if strings.Contains(lower, k) {
				return r, true
			}
		}
	}
	return Rule{}, false
}
