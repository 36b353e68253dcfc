package tts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maternal-care-agent/internal/config"
)

type fakeClient struct {
	got  Request
	resp Response
	err  error
}

func (f *fakeClient) Speech(_ context.Context, req Request) (Response, error) {
	f.got = req
	return f.resp, f.err
}

func TestSynthesize(t *testing.T) {
	client := &fakeClient{resp: Response{Data: []byte("ogg"), Format: "opus"}}
	svc := NewService(client, config.Config{TTSModel: "tts-1", TTSVoice: "alloy", TTSFormat: "opus", AlertLanguage: "sw"})

	audio, err := svc.Synthesize(context.Background(), "go to the clinic", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("ogg"), audio)
	assert.Equal(t, Request{Model: "tts-1", Voice: "alloy", Format: "opus", Language: "sw", Text: "go to the clinic"}, client.got)

	_, err = svc.Synthesize(context.Background(), "hello", "en")
	require.NoError(t, err)
	assert.Equal(t, "en", client.got.Language)
}

func TestSynthesizeErrors(t *testing.T) {
	svc := NewService(&fakeClient{err: errors.New("boom")}, config.Config{})

	_, err := svc.Synthesize(context.Background(), "  ", "sw")
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = svc.Synthesize(context.Background(), "text", "sw")
	assert.EqualError(t, err, "boom")
}
