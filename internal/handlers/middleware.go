package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/code-hustle/apiserver/internal/services"
	"github.com/code-hustle/apiserver/internal/store"
	"github.com/code-hustle/apiserver/internal/token"
	"github.com/rs/zerolog"
)

// AuthMiddleware guards protected routes. It verifies the bearer token and
// re-fetches the user by id so downstream handlers always see the current
// role and profile, not the claims frozen into the token at issuance.
type AuthMiddleware struct {
	users  *services.UserService
	tokens *token.Manager
	log    zerolog.Logger
}

func NewAuthMiddleware(users *services.UserService, tokens *token.Manager, log zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{users: users, tokens: tokens, log: log}
}

// RequireAuth rejects requests without a valid bearer token and attaches the
// resolved user to the request context. A token whose user no longer exists
// is treated the same as an invalid token.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		claims, err := m.tokens.Verify(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Not authorized")
			return
		}

		user, err := m.users.GetByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "Not authorized")
				return
			}
			m.log.Error().Err(err).Int("user_id", claims.UserID).Msg("failed to load user for auth")
			writeError(w, http.StatusInternalServerError, "Something went wrong")
			return
		}

		ctx := context.WithValue(r.Context(), contextUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated requests whose user lacks the required
// role. Must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user.Role != role {
				writeError(w, http.StatusForbidden, "Not authorized for this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	value := strings.TrimSpace(parts[1])
	if value == "" {
		return "", errors.New("invalid authorization")
	}
	return value, nil
}
