package chat

import (
	"context"
	"errors"
	"fmt"
)

// Message is one conversation turn as sent to a provider.
type Message struct {
	Role    string
	Content string
}

// Provider generates a reply from the conversation history. A non-nil error
// is always a *ProviderError; a nil error comes with non-empty text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, history []Message) (string, error)
}

// FailureKind classifies why a provider attempt failed.
type FailureKind string

const (
	FailureTimeout          FailureKind = "timeout"
	FailureAuthentication   FailureKind = "authentication"
	FailureMalformedPayload FailureKind = "malformed_payload"
	FailureRateLimited      FailureKind = "rate_limited"
	FailureUnreachable      FailureKind = "unreachable"
)

type ProviderError struct {
	Provider string
	Kind     FailureKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err, deriving the kind from context errors and
// falling back to kind otherwise.
func NewProviderError(provider string, kind FailureKind, err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = FailureTimeout
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return &ProviderError{Provider: provider, Kind: pe.Kind, Err: pe.Err}
	}
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// KindForStatus maps an upstream HTTP status code to a failure kind.
func KindForStatus(status int) FailureKind {
	switch {
	case status == 401 || status == 403:
		return FailureAuthentication
	case status == 429:
		return FailureRateLimited
	case status == 408 || status == 504:
		return FailureTimeout
	case status >= 400 && status < 500:
		return FailureMalformedPayload
	}
	return FailureUnreachable
}

// ErrEmptyCompletion is wrapped by providers whose upstream answered without text.
var ErrEmptyCompletion = errors.New("empty completion")
