package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-user-auth/users"
)

type contextKey string

const userContextKey contextKey = "authenticated-user"

// RequireBearerAuth guards routes that take an Authorization: Bearer
// header rather than session cookies. The resolved user is placed on
// the request context.
func (s *Server) RequireBearerAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		rawToken, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(rawToken) == "" {
			writeStatus(w, http.StatusUnauthorized)
			return
		}

		user, err := s.auth.UserFromAccessToken(r.Context(), strings.TrimSpace(rawToken))
		if err != nil {
			writeStatus(w, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// UserFromContext returns the user resolved by RequireBearerAuth.
func UserFromContext(ctx context.Context) (*users.User, bool) {
	user, ok := ctx.Value(userContextKey).(*users.User)
	return user, ok
}
