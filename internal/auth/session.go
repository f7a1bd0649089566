package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/sakif/recipe-share/internal/apperror"
	"github.com/sakif/recipe-share/internal/model"
	"github.com/sakif/recipe-share/internal/repository"
)

// DefaultSessionTTL matches the lifetime of the login cookie.
const DefaultSessionTTL = 24 * time.Hour

// SessionManager binds browsers to users through stored sessions.
//
// SESSION IDS AT REST:
// The cookie carries a random 32-byte secret. The store only ever sees its
// BLAKE2b-256 digest, so a leaked sessions table cannot be replayed as
// cookies.
type SessionManager struct {
	store  repository.SessionRepository
	tokens *TokenService
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewSessionManager(store repository.SessionRepository, tokens *TokenService, ttl time.Duration, logger *slog.Logger) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		store:  store,
		tokens: tokens,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

func (m *SessionManager) TTL() time.Duration { return m.ttl }

// Create stores a new session for userID and returns the cookie value and
// its expiry.
func (m *SessionManager) Create(ctx context.Context, userID string) (string, time.Time, error) {
	secret, err := newSessionSecret()
	if err != nil {
		return "", time.Time{}, err
	}

	now := m.now()
	sess := &model.Session{
		ID:        digest(secret),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return "", time.Time{}, fmt.Errorf("auth: storing session: %w", err)
	}

	token, err := m.tokens.Sign(userID, secret, sess.ExpiresAt)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, sess.ExpiresAt, nil
}

// Resolve returns the user ID bound to token.
//
// A missing, forged, expired or revoked token yields
// apperror.ErrUnauthenticated. Any other error is a storage failure.
func (m *SessionManager) Resolve(ctx context.Context, token string) (string, error) {
	claims, err := m.tokens.Verify(token)
	if err != nil {
		return "", apperror.Unauthenticated("invalid session")
	}

	id := digest(claims.SessionID)
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.Unauthenticated("session not found")
		}
		return "", fmt.Errorf("auth: loading session: %w", err)
	}

	if sess.UserID != claims.UserID {
		return "", apperror.Unauthenticated("session does not match token")
	}

	if sess.Expired(m.now()) {
		if err := m.store.DeleteSession(ctx, id); err != nil {
			m.logger.Warn("failed to delete expired session", slog.String("error", err.Error()))
		}
		return "", apperror.Unauthenticated("session expired")
	}

	return sess.UserID, nil
}

// Destroy deletes the session named by token. Tokens this server did not
// sign are ignored; expired ones still have their session removed.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	claims, err := m.tokens.VerifySignature(token)
	if err != nil {
		return nil
	}
	if err := m.store.DeleteSession(ctx, digest(claims.SessionID)); err != nil {
		return fmt.Errorf("auth: deleting session: %w", err)
	}
	return nil
}

func newSessionSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: generating session secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func digest(secret string) string {
	sum := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
