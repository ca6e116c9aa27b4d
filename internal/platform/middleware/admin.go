package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"idswyft/pkg/requestcontext"
)

// AdminTokenHeader carries the shared operator token for admin endpoints.
const AdminTokenHeader = "X-Admin-Token"

// AdminActorHeader optionally identifies the operator for audit attribution.
const AdminActorHeader = "X-Admin-Actor"

// RequireAdminToken guards admin endpoints with a shared token. A missing or
// mismatched token yields 403 without revealing whether the token exists.
func RequireAdminToken(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			supplied := r.Header.Get(AdminTokenHeader)
			if token == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
				logger.WarnContext(ctx, "admin endpoint access denied",
					"request_id", GetRequestID(ctx),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"Admin token required"}`))
				return
			}

			if actor := r.Header.Get(AdminActorHeader); actor != "" {
				ctx = requestcontext.WithActorID(ctx, actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
