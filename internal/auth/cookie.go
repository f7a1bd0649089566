package auth

import (
	"net/http"
	"time"
)

const (
	// SessionCookie holds the signed session token.
	SessionCookie = "sid"
	// StateCookie holds the OAuth state between redirect and callback.
	StateCookie = "oauth_state"

	stateMaxAge = 10 * time.Minute
)

// CookieWriter sets and clears the auth cookies. Secure should be true
// whenever the API is served over HTTPS.
type CookieWriter struct {
	Secure bool
}

func (c CookieWriter) SetSession(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieWriter) ClearSession(w http.ResponseWriter) {
	c.clear(w, SessionCookie)
}

func (c CookieWriter) SetState(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearState removes the state cookie; it is single-use.
func (c CookieWriter) ClearState(w http.ResponseWriter) {
	c.clear(w, StateCookie)
}

func (c CookieWriter) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
