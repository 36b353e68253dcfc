// Package gemini is a chat provider backed by the Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"maternal-care-agent/internal/domain"
	"maternal-care-agent/internal/usecase/chat"
)

const Name = "gemini"

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature float32 `json:"temperature"`
}

type request struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type response struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

type Client struct {
	http        *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float32
}

func NewClient(apiKey, baseURL, model string, temperature float32) *Client {
	return &Client{
		http:        http.DefaultClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
	}
}

var _ chat.Provider = (*Client)(nil)

func (c *Client) Name() string { return Name }

func (c *Client) Complete(ctx context.Context, history []chat.Message) (string, error) {
	body, err := json.Marshal(buildRequest(history, c.temperature))
	if err != nil {
		return "", chat.NewProviderError(Name, chat.FailureMalformedPayload, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", chat.NewProviderError(Name, chat.FailureUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", chat.NewProviderError(Name, chat.FailureUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", chat.NewProviderError(Name, chat.FailureUnreachable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", chat.NewProviderError(Name, chat.KindForStatus(resp.StatusCode),
			fmt.Errorf("status %d: %s", resp.StatusCode, errorMessage(respBody)))
	}

	var out response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", chat.NewProviderError(Name, chat.FailureMalformedPayload, err)
	}
	if len(out.Candidates) == 0 {
		return "", chat.NewProviderError(Name, chat.FailureMalformedPayload, chat.ErrEmptyCompletion)
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", chat.NewProviderError(Name, chat.FailureMalformedPayload, chat.ErrEmptyCompletion)
	}
	return text, nil
}

// buildRequest folds system messages into systemInstruction and renames the
// assistant role to "model".
func buildRequest(history []chat.Message, temperature float32) request {
	req := request{GenerationConfig: generationConfig{Temperature: temperature}}
	var system []part
	for _, m := range history {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, part{Text: m.Content})
		case domain.RoleAssistant:
			req.Contents = append(req.Contents, content{Role: "model", Parts: []part{{Text: m.Content}}})
		default:
			req.Contents = append(req.Contents, content{Role: "user", Parts: []part{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		req.SystemInstruction = &content{Parts: system}
	}
	return req
}

func errorMessage(body []byte) string {
	var out response
	if json.Unmarshal(body, &out) == nil && out.Error != nil && out.Error.Message != "" {
		return out.Error.Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
