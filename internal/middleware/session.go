package middleware

import (
	"context"
	"net/http"

	"foodviz/internal/domain"
	"foodviz/internal/session"
)

type userContextKey struct{}

// RequireSession rejects requests while no operator is logged in. The
// dashboard holds a single backend session, so the check is against the
// stored token rather than a per-request credential.
func RequireSession(store session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := store.Load(r.Context())
			if err != nil || !s.Valid() {
				writeError(w, http.StatusUnauthorized, "unauthorized", "login required")
				return
			}
			ctx := context.WithValue(r.Context(), userContextKey{}, s.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the operator attached by RequireSession.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(domain.User)
	return u, ok
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"}}`))
}
