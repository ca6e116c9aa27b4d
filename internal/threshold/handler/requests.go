package handler

import (
	"idswyft/internal/threshold/models"
	dErrors "idswyft/pkg/domain-errors"
)

// UpdateRequest is the HTTP request body for PUT thresholds. All fields are
// optional; omitted fields keep their current value. Range validation lives
// in the domain model so the API and any future callers share it.
type UpdateRequest struct {
	AutoApproveThreshold  *float64          `json:"auto_approve_threshold"`
	ManualReviewThreshold *float64          `json:"manual_review_threshold"`
	RequireLiveness       *bool             `json:"require_liveness"`
	RequireBackOfID       *bool             `json:"require_back_of_id"`
	MaxAttempts           *int              `json:"max_attempts"`
	Overrides             *OverridesRequest `json:"overrides"`
}

// OverridesRequest mirrors the nullable technical overrides.
type OverridesRequest struct {
	PhotoConsistency       *float64 `json:"photo_consistency"`
	FaceMatchProduction    *float64 `json:"face_match_production"`
	FaceMatchSandbox       *float64 `json:"face_match_sandbox"`
	LivenessProduction     *float64 `json:"liveness_production"`
	LivenessSandbox        *float64 `json:"liveness_sandbox"`
	CrossValidation        *float64 `json:"cross_validation"`
	QualityFloor           *float64 `json:"quality_floor"`
	OCRConfidenceFloor     *float64 `json:"ocr_confidence_floor"`
	BarcodeConfidenceFloor *float64 `json:"barcode_confidence_floor"`
}

// Validate rejects empty updates early.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *UpdateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.AutoApproveThreshold == nil &&
		r.ManualReviewThreshold == nil &&
		r.RequireLiveness == nil &&
		r.RequireBackOfID == nil &&
		r.MaxAttempts == nil &&
		(r.Overrides == nil || *r.Overrides == (OverridesRequest{})) {
		return dErrors.New(dErrors.CodeValidation, "at least one field must be provided")
	}
	return nil
}

// ToUpdate converts the request to the domain update.
func (r *UpdateRequest) ToUpdate() models.Update {
	update := models.Update{
		AutoApproveThreshold:  r.AutoApproveThreshold,
		ManualReviewThreshold: r.ManualReviewThreshold,
		RequireLiveness:       r.RequireLiveness,
		RequireBackOfID:       r.RequireBackOfID,
		MaxAttempts:           r.MaxAttempts,
	}
	if r.Overrides != nil {
		update.Overrides = &models.TechnicalOverrides{
			PhotoConsistency:       r.Overrides.PhotoConsistency,
			FaceMatchProduction:    r.Overrides.FaceMatchProduction,
			FaceMatchSandbox:       r.Overrides.FaceMatchSandbox,
			LivenessProduction:     r.Overrides.LivenessProduction,
			LivenessSandbox:        r.Overrides.LivenessSandbox,
			CrossValidation:        r.Overrides.CrossValidation,
			QualityFloor:           r.Overrides.QualityFloor,
			OCRConfidenceFloor:     r.Overrides.OCRConfidenceFloor,
			BarcodeConfidenceFloor: r.Overrides.BarcodeConfidenceFloor,
		}
	}
	return update
}
