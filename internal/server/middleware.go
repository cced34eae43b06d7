package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/verte-zerg/typerush/internal/model"
)

type ctxKey string

const userKey ctxKey = "user"

// requireAuth rejects requests without a valid bearer token and stores the
// resolved account in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			authFailures.WithLabelValues("missing").Inc()
			s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		user, err := s.authority.Verify(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func currentUser(ctx context.Context) model.User {
	user, _ := ctx.Value(userKey).(model.User)
	return user
}
