package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// newFakeGoogle serves a token endpoint and a userinfo endpoint.
func newFakeGoogle(t *testing.T, profile map[string]string, userInfoStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(userInfoStatus)
		json.NewEncoder(w).Encode(profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(srv *httptest.Server) *GoogleProvider {
	return NewGoogleProvider(GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "http://localhost:5000/auth/google/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		UserInfoURL: srv.URL + "/userinfo",
	})
}

func TestGoogleProvider_AuthURL(t *testing.T) {
	p := NewGoogleProvider(GoogleConfig{
		ClientID:    "client-id",
		CallbackURL: "http://localhost:5000/auth/google/callback",
	})

	u, err := url.Parse(p.AuthURL("state-xyz"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)

	q := u.Query()
	assert.Equal(t, "state-xyz", q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "openid profile email", q.Get("scope"))
	assert.Equal(t, "http://localhost:5000/auth/google/callback", q.Get("redirect_uri"))
}

func TestGoogleProvider_Exchange(t *testing.T) {
	srv := newFakeGoogle(t, map[string]string{
		"sub":     "google-42",
		"name":    "Ann Cook",
		"email":   "ann@example.com",
		"picture": "https://example.com/ann.png",
	}, http.StatusOK)

	profile, err := newTestProvider(srv).Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, &Profile{
		Subject: "google-42",
		Name:    "Ann Cook",
		Email:   "ann@example.com",
		Picture: "https://example.com/ann.png",
	}, profile)
}

func TestGoogleProvider_ExchangeFailures(t *testing.T) {
	t.Run("bad code", func(t *testing.T) {
		srv := newFakeGoogle(t, map[string]string{"sub": "x"}, http.StatusOK)
		_, err := newTestProvider(srv).Exchange(context.Background(), "bad-code")
		assert.Error(t, err)
	})

	t.Run("userinfo error status", func(t *testing.T) {
		srv := newFakeGoogle(t, map[string]string{"sub": "x"}, http.StatusInternalServerError)
		_, err := newTestProvider(srv).Exchange(context.Background(), "good-code")
		assert.ErrorContains(t, err, "status 500")
	})

	t.Run("missing subject", func(t *testing.T) {
		srv := newFakeGoogle(t, map[string]string{"name": "nobody"}, http.StatusOK)
		_, err := newTestProvider(srv).Exchange(context.Background(), "good-code")
		assert.ErrorContains(t, err, "no subject")
	})
}
