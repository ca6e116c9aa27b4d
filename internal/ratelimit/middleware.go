package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	"idswyft/pkg/platform/httputil"
	"idswyft/pkg/requestcontext"
)

type exceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// PerTenant limits requests by the authenticated tenant. Requests without
// a tenant in context pass through; the auth middleware already rejects
// those. Limiter failures fail open so a Redis outage never blocks
// verifications.
func PerTenant(limiter Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tenantID := requestcontext.TenantID(ctx)
			if tenantID.IsNil() {
				next.ServeHTTP(w, r)
				return
			}

			result, err := limiter.Allow(ctx, tenantID.String())
			if err != nil {
				logger.ErrorContext(ctx, "rate limit check failed, allowing request",
					"tenant_id", tenantID,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := result.RetryAfter()
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				httputil.WriteJSON(w, http.StatusTooManyRequests, &exceededResponse{
					Error:      "rate_limit_exceeded",
					Message:    "Verification attempt quota exceeded. Please try again later.",
					RetryAfter: retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
