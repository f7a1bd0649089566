package model

import "time"

// Session binds an authenticated browser to a user.
//
// ID is a digest of the secret carried in the session cookie; the secret
// itself is never stored.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
