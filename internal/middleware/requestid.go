package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"foodviz/internal/api"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
)

// RequestID accepts a caller-supplied X-Request-ID or mints one, and carries it
// into outbound backend calls so both sides log the same id.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey, rid)
		ctx = api.ContextWithRequestID(ctx, rid)
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
