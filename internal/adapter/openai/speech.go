package openai

import (
	"context"
	"errors"
	"io"

	openaiapi "github.com/sashabaranov/go-openai"

	"maternal-care-agent/internal/usecase/tts"
)

var _ tts.Client = (*Client)(nil)

// Speech renders text with the OpenAI speech endpoint. The language hint is
// not used: the model infers the language from the text.
func (c *Client) Speech(ctx context.Context, req tts.Request) (tts.Response, error) {
	if req.Model == "" {
		return tts.Response{}, errors.New("speech model is required")
	}

	resp, err := c.api.CreateSpeech(ctx, openaiapi.CreateSpeechRequest{
		Model:          openaiapi.SpeechModel(req.Model),
		Input:          req.Text,
		Voice:          openaiapi.SpeechVoice(req.Voice),
		ResponseFormat: openaiapi.SpeechResponseFormat(req.Format),
	})
	if err != nil {
		return tts.Response{}, err
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return tts.Response{}, err
	}
	return tts.Response{Data: data, Format: req.Format}, nil
}
