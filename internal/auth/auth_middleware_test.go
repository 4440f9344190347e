package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hisaabkitaab/hisaabkitaab/internal/middleware"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMiddleware(t *testing.T, profiles *fakeProfiles, accounts fakeAccounts) *Middleware {
	t.Helper()
	v, err := NewJWTVerifier("", testSecret)
	require.NoError(t, err)
	return NewMiddleware(v, profiles, accounts, middleware.RespondError)
}

func capturePrincipal(got *session.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, _ = session.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireSession_Bearer(t *testing.T) {
	var got session.Principal
	handler := newTestMiddleware(t, newFakeProfiles(), fakeAccounts{}).RequireSession(capturePrincipal(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/protected/profile", nil)
	req.Header.Set("Authorization", "Bearer "+signHS256(t, validClaims("user_1")))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, session.Principal{
		ProfileID:  "prof-user_1",
		ExternalID: "user_1",
		Email:      "ayesha@example.com",
		FullName:   "Ayesha Khan",
		Language:   "en",
		AccountID:  "acc-prof-user_1",
		Role:       session.RoleOwner,
	}, got)
}

func TestRequireSession_Cookie(t *testing.T) {
	var got session.Principal
	handler := newTestMiddleware(t, newFakeProfiles(), fakeAccounts{}).RequireSession(capturePrincipal(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/protected/profile", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: signHS256(t, validClaims("user_2"))})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "prof-user_2", got.ProfileID)
}

func TestRequireSession_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := newTestMiddleware(t, newFakeProfiles(), fakeAccounts{}).RequireSession(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				called = true
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/protected/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			assert.False(t, called)
		})
	}
}

func TestRequireSession_ResolveFailures(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.failWith = errors.New("db down")
	handler := newTestMiddleware(t, profiles, fakeAccounts{}).RequireSession(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/protected/profile", nil)
	req.Header.Set("Authorization", "Bearer "+signHS256(t, validClaims("user_1")))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	handler = newTestMiddleware(t, newFakeProfiles(), fakeAccounts{failWith: errors.New("db down")}).RequireSession(http.NotFoundHandler())
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
