package handler

import (
	"encoding/base64"
	"strings"

	"idswyft/internal/verification/models"
	"idswyft/internal/verification/service"
	id "idswyft/pkg/domain"
	dErrors "idswyft/pkg/domain-errors"
)

// BackOfIDFieldsRequest carries a structured PDF417 barcode read supplied
// by the capture client.
type BackOfIDFieldsRequest struct {
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	DocumentNumber string  `json:"document_number"`
	DateOfBirth    string  `json:"date_of_birth"`
	ExpirationDate string  `json:"expiration_date"`
	Address        string  `json:"address"`
	Confidence     float64 `json:"confidence"`
}

// FaceSignalRequest carries face match and liveness outputs from the
// capture pipeline.
type FaceSignalRequest struct {
	FaceDetected  bool    `json:"face_detected"`
	MatchScore    float64 `json:"match_score"`
	LivenessScore float64 `json:"liveness_score"`
}

// VerifyDocumentRequest is the wire input for a verification attempt.
// Images arrive base64-encoded; decoding happens during validation.
type VerifyDocumentRequest struct {
	DocumentType   string                 `json:"document_type"`
	DocumentImage  string                 `json:"document_image"`
	BackOfIDImage  string                 `json:"back_of_id_image,omitempty"`
	BackOfIDFields *BackOfIDFieldsRequest `json:"back_of_id_fields,omitempty"`
	Face           *FaceSignalRequest     `json:"face,omitempty"`
	Sandbox        bool                   `json:"sandbox"`

	frontImage []byte
	backImage  []byte
}

// Validate decodes the image payloads and checks signal ranges.
func (r *VerifyDocumentRequest) Validate() error {
	fields := map[string]string{}

	if strings.TrimSpace(r.DocumentImage) == "" {
		fields["document_image"] = "is required"
	} else {
		decoded, err := base64.StdEncoding.DecodeString(r.DocumentImage)
		if err != nil {
			fields["document_image"] = "must be valid base64"
		} else {
			r.frontImage = decoded
		}
	}

	if strings.TrimSpace(r.BackOfIDImage) != "" {
		decoded, err := base64.StdEncoding.DecodeString(r.BackOfIDImage)
		if err != nil {
			fields["back_of_id_image"] = "must be valid base64"
		} else {
			r.backImage = decoded
		}
	}

	if r.BackOfIDFields != nil {
		if r.BackOfIDFields.Confidence < 0 || r.BackOfIDFields.Confidence > 1 {
			fields["back_of_id_fields.confidence"] = "must be between 0 and 1"
		}
	}
	if r.Face != nil {
		if r.Face.MatchScore < 0 || r.Face.MatchScore > 1 {
			fields["face.match_score"] = "must be between 0 and 1"
		}
		if r.Face.LivenessScore < 0 || r.Face.LivenessScore > 1 {
			fields["face.liveness_score"] = "must be between 0 and 1"
		}
	}

	if len(fields) > 0 {
		return dErrors.WithFields(dErrors.CodeValidation, "invalid verification request", fields)
	}
	return nil
}

// ToVerifyRequest maps the validated wire request onto the domain input.
// The tenant identity comes from the authenticated context, not the body.
func (r *VerifyDocumentRequest) ToVerifyRequest(tenantID id.TenantID, sandbox bool) service.VerifyRequest {
	out := service.VerifyRequest{
		TenantID:     tenantID,
		DocumentType: models.ParseDocumentType(r.DocumentType),
		FrontImage:   r.frontImage,
		BackImage:    r.backImage,
		Sandbox:      sandbox,
	}
	if r.BackOfIDFields != nil {
		out.BackFields = &service.BackOfIDFields{
			FirstName:      r.BackOfIDFields.FirstName,
			LastName:       r.BackOfIDFields.LastName,
			DocumentNumber: r.BackOfIDFields.DocumentNumber,
			DateOfBirth:    r.BackOfIDFields.DateOfBirth,
			ExpirationDate: r.BackOfIDFields.ExpirationDate,
			Address:        r.BackOfIDFields.Address,
			Confidence:     r.BackOfIDFields.Confidence,
		}
	}
	if r.Face != nil {
		out.Face = &models.FaceSignal{
			FaceDetected:  r.Face.FaceDetected,
			MatchScore:    r.Face.MatchScore,
			LivenessScore: r.Face.LivenessScore,
		}
	}
	return out
}
