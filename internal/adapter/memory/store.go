package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"maternal-care-agent/internal/domain"
)

type entry struct {
	mu      sync.Mutex
	session domain.Session
}

// Store keeps sessions in process memory. When a transcript repository is
// attached, every message is written through and unknown session ids are
// rehydrated from it.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	preamble string
	repo     domain.TranscriptRepository
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewStore(preamble string, repo domain.TranscriptRepository, log logrus.FieldLogger) *Store {
	return &Store{
		sessions: make(map[string]*entry),
		preamble: preamble,
		repo:     repo,
		log:      log,
		now:      time.Now,
	}
}

var _ domain.SessionStore = (*Store)(nil)

func (s *Store) CreateSession(ctx context.Context, patientID string) (string, error) {
	id := uuid.New().String()
	now := s.now()

	e := &entry{session: domain.Session{
		ID:        id,
		PatientID: patientID,
		CreatedAt: now,
		Messages: []domain.Message{{
			Role:      domain.RoleSystem,
			Content:   s.preamble,
			Timestamp: now,
		}},
		Context: domain.DefaultContext(),
	}}

	e.mu.Lock()
	defer e.mu.Unlock()

	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()

	s.persist(ctx, id, domain.RoleSystem, s.preamble, patientID)
	return id, nil
}

func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	e, ok := s.lookup(ctx, sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.session.Messages = append(e.session.Messages, domain.Message{
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	})
	s.persist(ctx, sessionID, role, content, e.session.PatientID)
	return nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	e, ok := s.lookup(ctx, sessionID)
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

func (s *Store) UpdateContext(ctx context.Context, sessionID string, partial domain.Context) bool {
	e, ok := s.lookup(ctx, sessionID)
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.Context == nil {
		e.session.Context = domain.DefaultContext()
	}
	e.session.Context.Merge(partial)
	return true
}

func (s *Store) ModifyContext(ctx context.Context, sessionID string, fn func(domain.Context)) bool {
	e, ok := s.lookup(ctx, sessionID)
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.Context == nil {
		e.session.Context = domain.DefaultContext()
	}
	fn(e.session.Context)
	return true
}

func (s *Store) lookup(ctx context.Context, sessionID string) (*entry, bool) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok || s.repo == nil || sessionID == "" {
		return e, ok
	}

	restored, ok := s.rehydrate(ctx, sessionID)
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// another request may have restored the same id meanwhile
	if existing, found := s.sessions[sessionID]; found {
		return existing, true
	}
	s.sessions[sessionID] = restored
	return restored, true
}

func (s *Store) rehydrate(ctx context.Context, sessionID string) (*entry, bool) {
	history, err := s.repo.LoadHistory(ctx, sessionID)
	if err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("failed to load transcript")
		return nil, false
	}
	if len(history) == 0 {
		return nil, false
	}

	session := domain.Session{
		ID:        sessionID,
		PatientID: history[0].PatientID,
		CreatedAt: history[0].CreatedAt,
		Messages:  make([]domain.Message, 0, len(history)),
		Context:   domain.DefaultContext(),
	}
	for _, h := range history {
		session.Messages = append(session.Messages, domain.Message{
			Role:      h.Role,
			Content:   h.Content,
			Timestamp: h.CreatedAt,
		})
	}
	if session.Messages[0].Role != domain.RoleSystem {
		session.Messages = append([]domain.Message{{
			Role:      domain.RoleSystem,
			Content:   s.preamble,
			Timestamp: session.CreatedAt,
		}}, session.Messages...)
	}

	s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"messages":   len(session.Messages),
	}).Info("session restored from transcript")
	return &entry{session: session}, true
}

// persist is called with the session lock held so the durable order matches
// the in-memory order.
func (s *Store) persist(ctx context.Context, sessionID, role, content, patientID string) {
	if s.repo == nil {
		return
	}
	if err := s.repo.SaveMessage(ctx, sessionID, role, content, patientID); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("failed to persist message")
	}
}
