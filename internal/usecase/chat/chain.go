package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"maternal-care-agent/internal/metrics"
)

const DefaultProviderTimeout = 12 * time.Second

// Reply is the chain's answer and the name of the source that produced it.
type Reply struct {
	Text   string
	Source string
}

// Chain tries each provider once, in order, and falls back to the terminal
// responder. The roster is fixed at construction.
type Chain struct {
	providers []Provider
	terminal  *Responder
	timeout   time.Duration
	log       logrus.FieldLogger
}

func NewChain(providers []Provider, terminal *Responder, timeout time.Duration, log logrus.FieldLogger) *Chain {
	if terminal == nil {
		terminal = NewResponder()
	}
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &Chain{
		providers: append([]Provider(nil), providers...),
		terminal:  terminal,
		timeout:   timeout,
		log:       log,
	}
}

// Providers returns the configured provider names in order.
func (c *Chain) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// Generate never fails: when every provider does, the terminal responder answers.
func (c *Chain) Generate(ctx context.Context, history []Message) Reply {
	for _, p := range c.providers {
		if ctx.Err() != nil {
			c.fail(p.Name(), NewProviderError(p.Name(), FailureTimeout, ctx.Err()))
			continue
		}

		text, err := c.attempt(ctx, p, history)
		if err != nil {
			c.fail(p.Name(), err)
			continue
		}

		metrics.ProviderAttempts.WithLabelValues(p.Name(), metrics.OutcomeSuccess).Inc()
		return Reply{Text: text, Source: p.Name()}
	}

	metrics.ProviderAttempts.WithLabelValues(SourceRules, metrics.OutcomeSuccess).Inc()
	return Reply{Text: c.terminal.Reply(history), Source: SourceRules}
}

func (c *Chain) attempt(ctx context.Context, p Provider, history []Message) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := p.Complete(attemptCtx, history)
	if err != nil {
		return "", NewProviderError(p.Name(), FailureUnreachable, err)
	}
	if attemptCtx.Err() != nil {
		// answered after the deadline
		return "", NewProviderError(p.Name(), FailureTimeout, attemptCtx.Err())
	}
	if strings.TrimSpace(text) == "" {
		return "", NewProviderError(p.Name(), FailureMalformedPayload, ErrEmptyCompletion)
	}
	return text, nil
}

func (c *Chain) fail(name string, err error) {
	kind := FailureUnreachable
	var pe *ProviderError
	if errors.As(err, &pe) {
		kind = pe.Kind
	}
	metrics.ProviderAttempts.WithLabelValues(name, string(kind)).Inc()
	c.log.WithFields(logrus.Fields{
		"provider": name,
		"kind":     kind,
	}).WithError(err).Warn("provider failed, trying next")
}
