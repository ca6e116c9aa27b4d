package middleware

import (
	"net/http"
	"time"

	"idswyft/pkg/requestcontext"
)

// RequestTime captures the wall clock once at the start of the request so
// every timestamp taken during it (audit events, updated_at columns) agrees.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
