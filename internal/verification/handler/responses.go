package handler

import (
	"time"

	"idswyft/internal/verification/models"
)

// VerificationErrorResponse is the wire shape of a classified failure.
type VerificationErrorResponse struct {
	Kind                 string    `json:"kind"`
	Stage                string    `json:"stage"`
	Message              string    `json:"message"`
	UserMessage          string    `json:"user_message"`
	AllowReupload        bool      `json:"allow_reupload"`
	RequiresManualReview bool      `json:"requires_manual_review"`
	IsFraudAlert         bool      `json:"is_fraud_alert"`
	Timestamp            time.Time `json:"timestamp"`
}

// VerificationResponse is the wire shape of a decided attempt.
type VerificationResponse struct {
	ID        string                     `json:"id"`
	TenantID  string                     `json:"tenant_id"`
	Status    string                     `json:"status"`
	Stage     string                     `json:"stage"`
	Scores    map[string]float64         `json:"scores"`
	Error     *VerificationErrorResponse `json:"error,omitempty"`
	IsSandbox bool                       `json:"is_sandbox"`
}

func FromOutcome(out *models.VerificationOutcome) VerificationResponse {
	resp := VerificationResponse{
		ID:        out.ID.String(),
		TenantID:  out.TenantID.String(),
		Status:    string(out.Status),
		Stage:     string(out.Stage),
		Scores:    out.Scores,
		IsSandbox: out.IsSandbox,
	}
	if out.Error != nil {
		resp.Error = &VerificationErrorResponse{
			Kind:                 string(out.Error.Kind),
			Stage:                string(out.Error.Stage),
			Message:              out.Error.Message,
			UserMessage:          out.Error.UserMessage,
			AllowReupload:        out.Error.AllowReupload,
			RequiresManualReview: out.Error.RequiresManualReview,
			IsFraudAlert:         out.Error.IsFraudAlert,
			Timestamp:            out.Error.Timestamp,
		}
	}
	return resp
}
