package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "idswyft/pkg/domain"
	"idswyft/pkg/requestcontext"
)

// TenantTokenValidator validates a tenant API token.
type TenantTokenValidator interface {
	ValidateToken(tokenString string) (*TenantClaims, error)
}

// TenantClaims is what the middleware needs from a validated API token.
type TenantClaims struct {
	TenantID id.TenantID
	Sandbox  bool
}

type contextKeySandboxToken struct{}

// SandboxToken reports whether the request authenticated with a
// sandbox-scoped token.
func SandboxToken(ctx context.Context) bool {
	sandbox, ok := ctx.Value(contextKeySandboxToken{}).(bool)
	return ok && sandbox
}

// RequireTenantAuth authenticates API requests with a Bearer tenant token
// and places the tenant identity on the request context.
func RequireTenantAuth(validator TenantTokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeUnauthorized(ctx, w, logger, requestID, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(ctx, w, logger, requestID, "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithTenantID(ctx, claims.TenantID)
			ctx = context.WithValue(ctx, contextKeySandboxToken{}, claims.Sandbox)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, requestID, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, err := w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
	if err != nil {
		logger.ErrorContext(ctx, "failed to write unauthorized response",
			"error", err,
			"request_id", requestID,
		)
	}
}
