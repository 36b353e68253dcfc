package openai

import (
	"context"
	"errors"
	"strings"

	openaiapi "github.com/sashabaranov/go-openai"

	"maternal-care-agent/internal/usecase/chat"
)

// Client is a chat provider for any OpenAI-compatible endpoint (OpenAI,
// Mistral, AI/ML API). It also serves speech synthesis.
type Client struct {
	name        string
	api         *openaiapi.Client
	model       string
	temperature float32
}

// NewClient builds a provider called name. An empty baseURL means OpenAI.
func NewClient(name, token, baseURL, model string, temperature float32) *Client {
	cfg := openaiapi.DefaultConfig(token)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		name:        name,
		api:         openaiapi.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
	}
}

var _ chat.Provider = (*Client)(nil)

func (c *Client) Name() string { return c.name }

func (c *Client) Complete(ctx context.Context, history []chat.Message) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openaiapi.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toAPIMessages(history),
		Temperature: c.temperature,
		Stream:      false,
	})
	if err != nil {
		return "", chat.NewProviderError(c.name, failureKind(err), err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", chat.NewProviderError(c.name, chat.FailureMalformedPayload, chat.ErrEmptyCompletion)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func failureKind(err error) chat.FailureKind {
	var apiErr *openaiapi.APIError
	if errors.As(err, &apiErr) {
		return chat.KindForStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openaiapi.RequestError
	if errors.As(err, &reqErr) {
		return chat.KindForStatus(reqErr.HTTPStatusCode)
	}
	return chat.FailureUnreachable
}

func toAPIMessages(msgs []chat.Message) []openaiapi.ChatCompletionMessage {
	res := make([]openaiapi.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		res = append(res, openaiapi.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return res
}
