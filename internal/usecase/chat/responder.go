package chat

import (
	"strings"

	"maternal-care-agent/internal/domain"
)

// SourceRules names the terminal responder in replies and metrics.
const SourceRules = "rules"

type responderRule struct {
	keywords []string
	reply    string
}

var responderRules = []responderRule{
	{
		keywords: []string{"emergency", "urgent", "severe pain", "bleeding", "contractions", "water broke"},
		reply:    "⚠️ This may be an emergency. Please go to the nearest hospital right away or call emergency services. If you can, ask someone to take you now.",
	},
	{
		keywords: []string{"pain", "ache", "cramp", "discomfort"},
		reply:    "Some aches and mild cramps are common in pregnancy. Rest, drink water and change position. If the pain is strong, does not go away, or comes with bleeding or fever, visit a clinic.",
	},
	{
		keywords: []string{"food", "eat", "diet", "nutrition", "vitamin"},
		reply:    "Eat a variety of foods: vegetables, fruits, beans, eggs, fish or meat, and whole grains. Take your iron and folic acid supplements daily and drink plenty of clean water.",
	},
	{
		keywords: []string{"exercise", "workout", "fitness", "activity"},
		reply:    "Gentle activity like walking is good during pregnancy. Avoid heavy lifting and stop if you feel dizzy, short of breath or have pain.",
	},
	{
		keywords: []string{"pregnant", "pregnancy", "baby", "fetus"},
		reply:    "Regular antenatal check-ups help keep you and your baby healthy. Try to attend at least eight visits during your pregnancy and keep your clinic card with you.",
	},
	{
		keywords: FacilityKeywords,
		reply:    "I can help you find a nearby health facility. Share your location and I will list the closest clinics and hospitals.",
	},
}

const defaultReply = "I'm here to support you through your pregnancy. Tell me how you are feeling, or ask about symptoms, nutrition, exercise or finding a clinic."

// Responder is the terminal rule-based source. It always answers.
type Responder struct{}

func NewResponder() *Responder {
	return &Responder{}
}

// Reply answers the latest user message in history.
func (r *Responder) Reply(history []Message) string {
	lower := strings.ToLower(lastUserText(history))
	for _, rule := range responderRules {
		for _, k := range rule.keywords {
			if strings.Contains(lower, k) {
				return rule.reply
			}
		}
	}
	return defaultReply
}

func lastUserText(history []Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleUser {
			return history[i].Content
		}
	}
	return ""
}
