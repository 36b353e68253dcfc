package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponderRules(t *testing.T) {
	r := NewResponder()
	tests := []struct {
		text string
		want string
	}{
		{"This is urgent", responderRules[0].reply},
		{"my water broke", responderRules[0].reply},
		{"severe pain in my back", responderRules[0].reply},
		{"I have a backache", responderRules[1].reply},
		{"what should I eat", responderRules[2].reply},
		{"is exercise safe", responderRules[3].reply},
		{"I am pregnant", responderRules[4].reply},
		{"where is the nearest clinic", responderRules[5].reply},
		{"hello", defaultReply},
	}
	for _, tt := range tests {
		got := r.Reply([]Message{{Role: "system", Content: "urgent"}, {Role: "user", Content: tt.text}})
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestResponderUsesLatestUserMessage(t *testing.T) {
	r := NewResponder()
	history := []Message{
		{Role: "user", Content: "emergency"},
		{Role: "assistant", Content: "go to hospital"},
		{Role: "user", Content: "thanks, what vitamin should I take"},
	}
	assert.Equal(t, responderRules[2].reply, r.Reply(history))
	assert.Equal(t, defaultReply, r.Reply(nil))
}
