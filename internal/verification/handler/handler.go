// Package handler exposes the verification API over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idswyft/internal/platform/middleware"
	"idswyft/internal/verification/models"
	"idswyft/internal/verification/service"
	dErrors "idswyft/pkg/domain-errors"
	"idswyft/pkg/platform/httputil"
	"idswyft/pkg/requestcontext"
)

// Service is the verification pipeline the handler drives.
type Service interface {
	Verify(ctx context.Context, req service.VerifyRequest) (*models.VerificationOutcome, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the verification routes. The caller wraps the router
// with request ID and tenant auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/v1/verify/document", h.HandleVerifyDocument)
}

func (h *Handler) HandleVerifyDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "tenant authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[VerifyDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	// A sandbox-scoped token forces sandbox mode regardless of the body flag.
	sandbox := req.Sandbox || middleware.SandboxToken(ctx)

	out, err := h.service.Verify(ctx, req.ToVerifyRequest(tenantID, sandbox))
	if err != nil {
		h.logger.ErrorContext(ctx, "verification request failed",
			"tenant_id", tenantID,
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification request handled",
		"tenant_id", tenantID,
		"verification_id", out.ID,
		"status", out.Status,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, FromOutcome(out))
}
