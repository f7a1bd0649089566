package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/recipe-share/internal/auth"
	"github.com/sakif/recipe-share/internal/metrics"
	"github.com/sakif/recipe-share/internal/model"
)

// Accounts finds or creates the local user for a provider profile.
type Accounts interface {
	LoginOrRegister(ctx context.Context, profile *auth.Profile) (*model.User, error)
}

// Sessions issues and revokes session tokens.
type Sessions interface {
	Create(ctx context.Context, userID string) (string, time.Time, error)
	Destroy(ctx context.Context, token string) error
}

// AuthHandler drives the Google sign-in redirect dance and the session
// endpoints the client polls.
//
// FLOW:
//  1. GET /auth/google           → state cookie + redirect to Google
//  2. GET /auth/google/callback  → verify state, exchange code, find or
//     create the user, set the session cookie, redirect to the client
//  3. GET /auth/user             → who am I (401 when anonymous)
//  4. GET /auth/logout           → revoke the session and clear the cookie
//
// The callback never answers with JSON: the browser is mid-navigation, so
// every outcome is a redirect back to the client with a query flag.
type AuthHandler struct {
	provider  auth.Provider
	accounts  Accounts
	sessions  Sessions
	cookies   auth.CookieWriter
	clientURL string
	metrics   *metrics.Metrics
	logger    *slog.Logger
	responder
}

// AuthHandlerConfig groups the AuthHandler's collaborators.
type AuthHandlerConfig struct {
	Provider  auth.Provider
	Accounts  Accounts
	Sessions  Sessions
	Cookies   auth.CookieWriter
	ClientURL string
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Options   Options
}

func NewAuthHandler(cfg AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		provider:  cfg.Provider,
		accounts:  cfg.Accounts,
		sessions:  cfg.Sessions,
		cookies:   cfg.Cookies,
		clientURL: cfg.ClientURL,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		responder: newResponder(cfg.Logger, cfg.Options),
	}
}

// HandleLogin redirects the browser to Google's consent page.
//
// HTTP: GET /auth/google
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	h.cookies.SetState(w, state)
	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the sign-in.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// The state cookie is single-use whatever happens next.
	stateCookie, err := r.Cookie(auth.StateCookie)
	h.cookies.ClearState(w)

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("oauth callback: authorization denied", slog.String("error", errParam))
		h.metrics.Login(metrics.LoginDenied)
		h.redirectFailed(w, r)
		return
	}

	if err != nil || stateCookie.Value == "" || q.Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: state mismatch")
		h.fail(w, r)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.logger.Warn("oauth callback: missing code")
		h.fail(w, r)
		return
	}

	profile, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: code exchange failed", slog.String("error", err.Error()))
		h.fail(w, r)
		return
	}

	user, err := h.accounts.LoginOrRegister(r.Context(), profile)
	if err != nil {
		h.logger.Error("oauth callback: loading user failed",
			slog.String("googleID", profile.Subject),
			slog.String("error", err.Error()),
		)
		h.fail(w, r)
		return
	}

	token, expiresAt, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("oauth callback: creating session failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		h.fail(w, r)
		return
	}
	h.cookies.SetSession(w, token, expiresAt)

	h.logger.Info("user signed in",
		slog.String("userID", user.ID),
		slog.Bool("admin", user.IsAdmin),
	)
	h.metrics.Login(metrics.LoginSuccess)

	v := url.Values{}
	v.Set("oauth_success", "true")
	v.Set("user", user.Name)
	http.Redirect(w, r, h.clientURL+"/?"+v.Encode(), http.StatusSeeOther)
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request) {
	h.metrics.Login(metrics.LoginFailure)
	h.redirectFailed(w, r)
}

func (h *AuthHandler) redirectFailed(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.clientURL+"/?oauth_failed=true", http.StatusSeeOther)
}

// HandleUser returns the signed-in user.
//
// HTTP: GET /auth/user
//
// Anonymous callers get 401. That is the normal answer for a visitor who
// has not signed in, so it is logged at debug only.
func (h *AuthHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.logger.Debug("auth user: not authenticated")
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthenticated",
			Message: "Not authenticated",
		})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleLogout revokes the session server-side and clears the cookie.
//
// HTTP: GET /auth/logout
//
// It works without a resolvable user: the token alone names the session.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearSession(w)

	if c, err := r.Cookie(auth.SessionCookie); err == nil && c.Value != "" {
		if err := h.sessions.Destroy(r.Context(), c.Value); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
