package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maternal-care-agent/internal/domain"
)

func newTestStore(repo domain.TranscriptRepository) *Store {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewStore("You are a maternal health assistant.", repo, log)
}

func TestCreateSessionInstallsPreambleAndDefaults(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(nil)

	for _, patient := range []string{"p1", "demo_user", "tg:42"} {
		id, err := s.CreateSession(ctx, patient)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		sess, err := s.GetSession(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, patient, sess.PatientID)
		require.Len(t, sess.Messages, 1)
		assert.Equal(t, domain.RoleSystem, sess.Messages[0].Role)
		assert.Equal(t, domain.RiskLow, sess.Context.RiskLevel())
		assert.Empty(t, sess.Context.Symptoms())
	}
}

func TestCreateSessionIDsAreUnique(t *testing.T) {
	s := newTestStore(nil)
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		id, err := s.CreateSession(context.Background(), "p")
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestAppendMessageIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(nil)
	id, err := s.CreateSession(ctx, "p1")
	require.NoError(t, err)

	before, err := s.GetSession(ctx, id)
	require.NoError(t, err)

	contents := []string{"hello", "I feel fine", "thanks"}
	for i, c := range contents {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		require.NoError(t, s.AppendMessage(ctx, id, role, c))

		after, err := s.GetSession(ctx, id)
		require.NoError(t, err)
		require.Len(t, after.Messages, len(before.Messages)+1)
		assert.Equal(t, c, after.Messages[len(after.Messages)-1].Content)
		assert.Equal(t, role, after.Messages[len(after.Messages)-1].Role)
		for j := range before.Messages {
			assert.Equal(t, before.Messages[j].Content, after.Messages[j].Content)
			assert.Equal(t, before.Messages[j].Role, after.Messages[j].Role)
		}
		before = after
	}
}

func TestUnknownSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(nil)

	err := s.AppendMessage(ctx, "missing", domain.RoleUser, "hi")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = s.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.False(t, s.UpdateContext(ctx, "missing", domain.Context{"x": 1}))
}

func TestUpdateContextShallowMergeAndIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(nil)
	id, _ := s.CreateSession(ctx, "p1")

	partial := domain.Context{
		domain.ContextLocation: domain.Coordinate{Lat: -1.2921, Lng: 36.8219},
		"language":             "sw",
	}
	require.True(t, s.UpdateContext(ctx, id, partial))
	once, _ := s.GetSession(ctx, id)

	require.True(t, s.UpdateContext(ctx, id, partial))
	twice, _ := s.GetSession(ctx, id)

	assert.Equal(t, once.Context, twice.Context)
	assert.Equal(t, domain.RiskLow, twice.Context.RiskLevel(), "keys absent from the update are preserved")
	loc, ok := twice.Context.Location()
	require.True(t, ok)
	assert.Equal(t, -1.2921, loc.Lat)
}

func TestModifyContextIsAtomicPerSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(nil)
	id, _ := s.CreateSession(ctx, "p1")

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ModifyContext(ctx, id, func(c domain.Context) {
				c[domain.ContextCurrentSymptoms] = append(c.Symptoms(), fmt.Sprintf("c%d", i))
			})
		}()
	}
	wg.Wait()

	sess, _ := s.GetSession(ctx, id)
	assert.Len(t, sess.Context.Symptoms(), writers)
	assert.False(t, s.ModifyContext(ctx, "missing", func(domain.Context) {}))
}

func TestSnapshotKeepsEmptyListsEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(nil)
	id, _ := s.CreateSession(ctx, "p1")

	sess, _ := s.GetSession(ctx, id)
	raw, err := json.Marshal(sess.Context)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"current_symptoms":[]`)
	assert.Contains(t, string(raw), `"patient_history":[]`)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(nil)
	id, _ := s.CreateSession(ctx, "p1")
	s.UpdateContext(ctx, id, domain.Context{domain.ContextCurrentSymptoms: []string{"fever"}})

	snap, _ := s.GetSession(ctx, id)
	snap.Messages[0].Content = "tampered"
	snap.Context[domain.ContextRiskLevel] = "HIGH"
	snap.Context[domain.ContextCurrentSymptoms].([]string)[0] = "tampered"

	fresh, _ := s.GetSession(ctx, id)
	assert.NotEqual(t, "tampered", fresh.Messages[0].Content)
	assert.Equal(t, domain.RiskLow, fresh.Context.RiskLevel())
	assert.Equal(t, []string{"fever"}, fresh.Context.Symptoms())
}

func TestConcurrentAppendsAcrossSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(nil)

	const sessions, perSession = 8, 50
	ids := make([]string, sessions)
	for i := range ids {
		ids[i], _ = s.CreateSession(ctx, fmt.Sprintf("p%d", i))
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		for w := 0; w < 2; w++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				for j := 0; j < perSession; j++ {
					_ = s.AppendMessage(ctx, id, domain.RoleUser, "msg")
					s.UpdateContext(ctx, id, domain.Context{"n": j})
				}
			}(id)
		}
	}
	wg.Wait()

	for _, id := range ids {
		sess, err := s.GetSession(ctx, id)
		require.NoError(t, err)
		assert.Len(t, sess.Messages, 1+2*perSession)
	}
}

type fakeRepo struct {
	mu      sync.Mutex
	rows    []domain.TranscriptEntry
	saveErr error
	loadErr error
}

func (f *fakeRepo) SaveMessage(_ context.Context, sessionID, role, content, patientID string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, domain.TranscriptEntry{
		SessionID: sessionID, PatientID: patientID, Role: role, Content: content, CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeRepo) LoadHistory(_ context.Context, sessionID string) ([]domain.TranscriptEntry, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TranscriptEntry
	for _, r := range f.rows {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestWriteThroughAndRehydrate(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	first := newTestStore(repo)

	id, err := first.CreateSession(ctx, "p7")
	require.NoError(t, err)
	require.NoError(t, first.AppendMessage(ctx, id, domain.RoleUser, "hello"))
	require.NoError(t, first.AppendMessage(ctx, id, domain.RoleAssistant, "hi there"))
	assert.Len(t, repo.rows, 3)

	// a fresh process sharing the same repository
	second := newTestStore(repo)
	sess, err := second.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "p7", sess.PatientID)
	require.Len(t, sess.Messages, 3)
	assert.Equal(t, domain.RoleSystem, sess.Messages[0].Role)
	assert.Equal(t, "hi there", sess.Messages[2].Content)
	assert.Equal(t, domain.RiskLow, sess.Context.RiskLevel())
}

func TestRepositoryFailuresAreAbsorbed(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{saveErr: errors.New("db down"), loadErr: errors.New("db down")}
	s := newTestStore(repo)

	id, err := s.CreateSession(ctx, "p1")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(ctx, id, domain.RoleUser, "hello"))

	_, err = s.GetSession(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
