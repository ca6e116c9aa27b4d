// Package handler exposes the admin endpoints for reading and updating
// per-tenant verification thresholds.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"idswyft/internal/threshold/models"
	id "idswyft/pkg/domain"
	dErrors "idswyft/pkg/domain-errors"
	"idswyft/pkg/platform/httputil"
	"idswyft/pkg/requestcontext"
)

// Service defines the interface for threshold operations.
type Service interface {
	Current(ctx context.Context, tenantID id.TenantID) (*models.ThresholdSet, error)
	Resolve(ctx context.Context, tenantID id.TenantID, sandbox bool) (models.EffectiveThresholds, error)
	Update(ctx context.Context, tenantID id.TenantID, update models.Update) (*models.ThresholdSet, error)
}

// Handler wires threshold admin endpoints to the threshold service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a threshold handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts threshold admin endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin/tenants/{tenantID}/thresholds", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Put("/", h.HandleUpdate)
	})
}

// HandleGet handles GET /admin/tenants/{tenantID}/thresholds.
// Returns the stored configuration alongside the effective thresholds for
// both modes so operators can see what the engine actually enforces.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := h.tenantFromPath(w, r)
	if !ok {
		return
	}

	set, err := h.service.Current(ctx, tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	production, err := h.service.Resolve(ctx, tenantID, false)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sandbox, err := h.service.Resolve(ctx, tenantID, true)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromThresholdSet(set, production, sandbox))
}

// HandleUpdate handles PUT /admin/tenants/{tenantID}/thresholds.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	tenantID, ok := h.tenantFromPath(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	set, err := h.service.Update(ctx, tenantID, req.ToUpdate())
	if err != nil {
		h.logger.ErrorContext(ctx, "threshold update failed",
			"request_id", requestID,
			"tenant_id", tenantID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	production, err := h.service.Resolve(ctx, tenantID, false)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sandbox, err := h.service.Resolve(ctx, tenantID, true)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "thresholds updated",
		"request_id", requestID,
		"tenant_id", tenantID,
		"version", set.Version,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromThresholdSet(set, production, sandbox))
}

func (h *Handler) tenantFromPath(w http.ResponseWriter, r *http.Request) (id.TenantID, bool) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id"))
		return id.TenantID{}, false
	}
	return tenantID, true
}
