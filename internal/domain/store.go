package domain

import (
	"context"
	"time"
)

// SessionStore owns conversation state. Operations on one session are
// serialized; operations on different sessions never block each other.
type SessionStore interface {
	CreateSession(ctx context.Context, patientID string) (string, error)
	AppendMessage(ctx context.Context, sessionID, role, content string) error
	GetSession(ctx context.Context, sessionID string) (Session, error)
	// UpdateContext shallow-merges partial into the session context and
	// reports false when the session is unknown.
	UpdateContext(ctx context.Context, sessionID string, partial Context) bool
	// ModifyContext runs fn on the live context under the session lock, so
	// read-modify-write updates are atomic. fn must not retain the context.
	ModifyContext(ctx context.Context, sessionID string, fn func(Context)) bool
}

// TranscriptEntry is one persisted message row.
type TranscriptEntry struct {
	SessionID string
	PatientID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// TranscriptRepository is the optional durable backing for transcripts.
type TranscriptRepository interface {
	SaveMessage(ctx context.Context, sessionID, role, content, patientID string) error
	LoadHistory(ctx context.Context, sessionID string) ([]TranscriptEntry, error)
}
