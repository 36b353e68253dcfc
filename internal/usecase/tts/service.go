package tts

import (
	"context"
	"errors"
	"strings"

	"maternal-care-agent/internal/config"
)

var ErrEmptyText = errors.New("empty text")

type Client interface {
	Speech(ctx context.Context, req Request) (Response, error)
}

type Request struct {
	Model    string
	Voice    string
	Format   string
	Language string
	Text     string
}

type Response struct {
	Data   []byte
	Format string
}

// Service renders alert text as audio.
type Service struct {
	client Client
	cfg    config.Config
}

func NewService(client Client, cfg config.Config) *Service {
	return &Service{
		client: client,
		cfg:    cfg,
	}
}

// Synthesize returns the encoded audio. language is a hint; clients that
// cannot honour it ignore it.
func (s *Service) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if language == "" {
		language = s.cfg.AlertLanguage
	}

	resp, err := s.client.Speech(ctx, Request{
		Model:    s.cfg.TTSModel,
		Voice:    s.cfg.TTSVoice,
		Format:   s.cfg.TTSFormat,
		Language: language,
		Text:     text,
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}
