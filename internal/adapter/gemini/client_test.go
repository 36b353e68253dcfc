package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maternal-care-agent/internal/usecase/chat"
)

var history = []chat.Message{
	{Role: "system", Content: "be kind"},
	{Role: "user", Content: "hello"},
	{Role: "assistant", Content: "hi"},
	{Role: "user", Content: "what should I eat?"},
}

func TestComplete(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Eat "},{"text":"greens."}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	c := NewClient("g-key", srv.URL, "gemini-1.5-flash", 0.5)
	reply, err := c.Complete(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "Eat greens.", reply)

	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "be kind", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 3)
	assert.Equal(t, "model", got.Contents[1].Role)
	assert.Equal(t, "user", got.Contents[2].Role)
	assert.Equal(t, float32(0.5), got.GenerationConfig.Temperature)
}

func TestCompleteFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   chat.FailureKind
	}{
		{"forbidden", http.StatusForbidden, `{"error":{"message":"API key not valid","status":"PERMISSION_DENIED"}}`, chat.FailureAuthentication},
		{"quota", http.StatusTooManyRequests, `{"error":{"message":"quota","status":"RESOURCE_EXHAUSTED"}}`, chat.FailureRateLimited},
		{"overloaded", http.StatusServiceUnavailable, `overloaded`, chat.FailureUnreachable},
		{"garbage", http.StatusOK, `not json`, chat.FailureMalformedPayload},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, chat.FailureMalformedPayload},
		{"blank text", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`, chat.FailureMalformedPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewClient("k", srv.URL, "m", 0).Complete(context.Background(), history)
			var pe *chat.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.want, pe.Kind)
		})
	}
}

func TestCompleteHonoursDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := NewClient("k", srv.URL, "m", 0).Complete(ctx, history)
	var pe *chat.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, chat.FailureTimeout, pe.Kind)
}
