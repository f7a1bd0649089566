// Package auth holds the pieces of the login flow: the Google OAuth
// provider, the signed session cookie, the server-side session manager and
// the middleware that resolves who is making a request.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Browser visits /auth/google and is redirected to Google
//  2. Google calls back /auth/google/callback with a code
//  3. The server exchanges the code for a profile and finds or creates the user
//  4. A server-side session is stored and a signed token naming it is set in
//     the HttpOnly "sid" cookie
//  5. On later requests the middleware verifies the token, looks the session
//     up and attaches the user to the request context
//
// WHY A SIGNED TOKEN *AND* A SERVER SESSION?
// The signature rejects forged or mangled cookies without touching storage.
// The stored session makes logout real: deleting the row invalidates the
// cookie even though its signature is still valid.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "recipe-share"

// ErrInvalidToken is returned for any cookie value that is not a token this
// server signed, or whose expiry has passed.
var ErrInvalidToken = errors.New("auth: invalid session token")

// TokenService signs and verifies session tokens.
//
// A session token is an HS256 JWT whose "sub" is the user ID and whose
// "jti" is the random session secret. Only a digest of the secret is kept
// server-side (see SessionManager).
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret.
// Example: SESSION_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// SessionClaims is what a verified token carries.
type SessionClaims struct {
	UserID    string
	SessionID string // the raw secret, not the stored digest
	ExpiresAt time.Time
}

// Sign issues a token binding userID to sessionSecret until expiresAt.
func (s *TokenService) Sign(userID, sessionSecret string, expiresAt time.Time) (string, error) {
	c := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        sessionSecret,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer and expiry.
//
// ALGORITHM CONFUSION ATTACK:
// Without pinning the algorithm an attacker could send a token signed with
// "none". jwt.WithValidMethods rejects anything but HS256.
func (s *TokenService) Verify(token string) (*SessionClaims, error) {
	return s.parse(token,
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
}

// VerifySignature checks the token was signed by this server but ignores
// its expiry. Logout uses it so an expired cookie still removes its session.
func (s *TokenService) VerifySignature(token string) (*SessionClaims, error) {
	return s.parse(token, jwt.WithoutClaimsValidation())
}

func (s *TokenService) parse(token string, opts ...jwt.ParserOption) (*SessionClaims, error) {
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)

	var c jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" || c.ID == "" {
		return nil, fmt.Errorf("%w: missing subject or id", ErrInvalidToken)
	}

	claims := &SessionClaims{UserID: c.Subject, SessionID: c.ID}
	if c.ExpiresAt != nil {
		claims.ExpiresAt = c.ExpiresAt.Time
	}
	return claims, nil
}
