package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/recipe-share/internal/apperror"
	"github.com/sakif/recipe-share/internal/model"
)

// memSessions is an in-memory repository.SessionRepository.
type memSessions struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	getErr   error
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]model.Session)}
}

func (m *memSessions) CreateSession(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memSessions) GetSession(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	return &s, nil
}

func (m *memSessions) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memSessions) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSessionManager(t *testing.T) (*SessionManager, *memSessions) {
	t.Helper()
	store := newMemSessions()
	return NewSessionManager(store, newTestTokenService(t), time.Hour, discardLogger()), store
}

func TestSessionManager_CreateResolveDestroy(t *testing.T) {
	m, store := newTestSessionManager(t)
	ctx := context.Background()

	token, expires, err := m.Create(ctx, "user-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)
	require.Equal(t, 1, store.len())

	for id := range store.sessions {
		assert.NotContains(t, token, id, "the stored id must be a digest, not the cookie secret")
	}

	userID, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	require.NoError(t, m.Destroy(ctx, token))
	assert.Equal(t, 0, store.len())

	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestSessionManager_ResolveInvalidToken(t *testing.T) {
	m, _ := newTestSessionManager(t)

	_, err := m.Resolve(context.Background(), "garbage")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestSessionManager_ResolveExpiredDeletesSession(t *testing.T) {
	m, store := newTestSessionManager(t)
	ctx := context.Background()

	token, _, err := m.Create(ctx, "user-1")
	require.NoError(t, err)

	// Session row expires before the token does.
	for id, s := range store.sessions {
		s.ExpiresAt = time.Now().Add(-time.Second)
		store.sessions[id] = s
	}

	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	assert.Equal(t, 0, store.len(), "expired session should be deleted on lookup")
}

func TestSessionManager_ResolveStorageFailure(t *testing.T) {
	m, store := newTestSessionManager(t)
	ctx := context.Background()

	token, _, err := m.Create(ctx, "user-1")
	require.NoError(t, err)

	boom := errors.New("disk full")
	store.getErr = boom

	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestSessionManager_DestroyExpiredToken(t *testing.T) {
	m, store := newTestSessionManager(t)
	ctx := context.Background()

	token, _, err := m.Create(ctx, "user-1")
	require.NoError(t, err)

	// Token verification happens an hour and a minute later.
	m.tokens.now = func() time.Time { return time.Now().Add(time.Hour + time.Minute) }

	require.NoError(t, m.Destroy(ctx, token))
	assert.Equal(t, 0, store.len())
}

func TestSessionManager_DestroyForeignTokenIsNoop(t *testing.T) {
	m, _ := newTestSessionManager(t)

	assert.NoError(t, m.Destroy(context.Background(), "not-a-token"))
}

func TestNewSessionManager_DefaultTTL(t *testing.T) {
	m := NewSessionManager(newMemSessions(), newTestTokenService(t), 0, discardLogger())

	assert.Equal(t, DefaultSessionTTL, m.TTL())
}
