package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hisaabkitaab/hisaabkitaab/internal/account"
	"github.com/hisaabkitaab/hisaabkitaab/internal/logger"
	"github.com/hisaabkitaab/hisaabkitaab/internal/profile"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

const sessionCookie = "__session"

type ProfileResolver interface {
	GetOrCreate(ctx context.Context, identity profile.Identity) (*profile.Profile, error)
}

type AccountResolver interface {
	Resolve(ctx context.Context, profileID, displayName string) (*account.Account, string, error)
}

type Middleware struct {
	verifier     TokenVerifier
	profiles     ProfileResolver
	accounts     AccountResolver
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string)
}

func NewMiddleware(
	verifier TokenVerifier,
	profiles ProfileResolver,
	accounts AccountResolver,
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string),
) *Middleware {
	if verifier == nil || profiles == nil || accounts == nil {
		panic("auth middleware requires a verifier, profile resolver and account resolver")
	}
	return &Middleware{verifier: verifier, profiles: profiles, accounts: accounts, respondError: respondError}
}

// RequireSession verifies the session token, resolves the caller's profile
// and account, and stores the resulting principal in the request context.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := sessionToken(r)
		if tokenString == "" {
			m.respondError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		claims, err := m.verifier.Verify(tokenString)
		if err != nil {
			if errors.Is(err, ErrExpiredJWTToken) {
				m.respondError(w, http.StatusUnauthorized, ErrExpiredJWTToken.Error())
				return
			}
			m.respondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		log := logger.FromContext(r.Context())
		prof, err := m.profiles.GetOrCreate(r.Context(), profile.Identity{
			ExternalID: claims.Subject,
			Email:      claims.Email,
			FullName:   claims.Name,
		})
		if err != nil {
			log.Error().Err(err).Str("external_id", claims.Subject).Msg("Resolving profile failed")
			m.respondError(w, http.StatusInternalServerError, "Failed to resolve profile")
			return
		}

		acc, role, err := m.accounts.Resolve(r.Context(), prof.ID, prof.DisplayName())
		if err != nil {
			log.Error().Err(err).Str("profile_id", prof.ID).Msg("Resolving account failed")
			m.respondError(w, http.StatusInternalServerError, "Failed to resolve account")
			return
		}

		ctx := session.WithPrincipal(r.Context(), session.Principal{
			ProfileID:  prof.ID,
			ExternalID: prof.ExternalID,
			Email:      prof.Email,
			FullName:   prof.FullName,
			Language:   prof.Language,
			AccountID:  acc.ID,
			Role:       role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionToken prefers the Authorization header and falls back to the
// identity provider's session cookie.
func sessionToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}
