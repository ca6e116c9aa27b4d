package handler

import (
	"time"

	"idswyft/internal/threshold/models"
)

// ThresholdsResponse is the HTTP response for threshold reads and updates.
type ThresholdsResponse struct {
	TenantID  string             `json:"tenant_id"`
	Version   int                `json:"version"`
	Config    ConfigResponse     `json:"config"`
	Effective EffectiveResponses `json:"effective"`
	UpdatedAt *time.Time         `json:"updated_at,omitempty"`
	UpdatedBy string             `json:"updated_by,omitempty"`
}

// ConfigResponse is the stored configuration portion of the response.
type ConfigResponse struct {
	AutoApproveThreshold  float64                   `json:"auto_approve_threshold"`
	ManualReviewThreshold float64                   `json:"manual_review_threshold"`
	RequireLiveness       bool                      `json:"require_liveness"`
	RequireBackOfID       bool                      `json:"require_back_of_id"`
	MaxAttempts           int                       `json:"max_attempts"`
	Overrides             models.TechnicalOverrides `json:"overrides"`
}

// EffectiveResponses carries the resolved thresholds per mode.
type EffectiveResponses struct {
	Production models.EffectiveThresholds `json:"production"`
	Sandbox    models.EffectiveThresholds `json:"sandbox"`
}

// FromThresholdSet converts a stored set plus its resolutions to an HTTP response.
func FromThresholdSet(set *models.ThresholdSet, production, sandbox models.EffectiveThresholds) *ThresholdsResponse {
	resp := &ThresholdsResponse{
		TenantID: set.TenantID.String(),
		Version:  set.Version,
		Config: ConfigResponse{
			AutoApproveThreshold:  set.AutoApproveThreshold,
			ManualReviewThreshold: set.ManualReviewThreshold,
			RequireLiveness:       set.RequireLiveness,
			RequireBackOfID:       set.RequireBackOfID,
			MaxAttempts:           set.MaxAttempts,
			Overrides:             set.Overrides,
		},
		Effective: EffectiveResponses{
			Production: production,
			Sandbox:    sandbox,
		},
		UpdatedBy: set.UpdatedBy,
	}
	if !set.UpdatedAt.IsZero() {
		updatedAt := set.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}
