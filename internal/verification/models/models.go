// Package models holds the data types produced by the verification decision
// engine. Everything here is plain structured data suitable for JSON
// serialization; no engine internals leak through these types.
package models

import (
	"time"

	id "idswyft/pkg/domain"
)

// Status is the lifecycle state of a verification attempt.
// Pending is the only non-terminal state.
type Status string

const (
	StatusPending      Status = "pending"
	StatusVerified     Status = "verified"
	StatusFailed       Status = "failed"
	StatusManualReview Status = "manual_review"
)

// IsTerminal reports whether the status can no longer change.
func (s Status) IsTerminal() bool {
	return s != StatusPending
}

// Stage identifies the pipeline stage that produced a signal.
type Stage string

const (
	StageQualityCheck    Stage = "quality_check"
	StageExtraction      Stage = "ocr_extraction"
	StageCrossValidation Stage = "cross_validation"
	StageFaceMatch       Stage = "face_matching"
	StageLiveness        Stage = "liveness_check"
)

// DocumentType selects the field-parsing pattern set during extraction.
type DocumentType string

const (
	DocTypePassport       DocumentType = "passport"
	DocTypeDriversLicense DocumentType = "drivers_license"
	DocTypeNationalID     DocumentType = "national_id"
	DocTypeOther          DocumentType = "other"
)

// ParseDocumentType normalizes a wire value, falling back to DocTypeOther
// for anything unrecognized so extraction degrades to generic patterns.
func ParseDocumentType(s string) DocumentType {
	switch DocumentType(s) {
	case DocTypePassport, DocTypeDriversLicense, DocTypeNationalID:
		return DocumentType(s)
	default:
		return DocTypeOther
	}
}

// OverallQuality is the categorical rating derived from the quality rubric.
type OverallQuality string

const (
	QualityExcellent OverallQuality = "excellent"
	QualityGood      OverallQuality = "good"
	QualityFair      OverallQuality = "fair"
	QualityPoor      OverallQuality = "poor"
)

// Resolution captures pixel dimensions and the high-resolution check.
type Resolution struct {
	Width     int  `json:"width"`
	Height    int  `json:"height"`
	IsHighRes bool `json:"is_high_res"`
}

// FileSize captures byte size and the reasonable-size check.
type FileSize struct {
	Bytes        int  `json:"bytes"`
	IsReasonable bool `json:"is_reasonable"`
}

// QualityReport scores a single uploaded image. Immutable once created;
// the gate consults it before extraction and the classifier consults it
// when quality failures occur.
type QualityReport struct {
	IsBlurry        bool           `json:"is_blurry"`
	BlurScore       float64        `json:"blur_score"`
	Brightness      float64        `json:"brightness"`
	Contrast        float64        `json:"contrast"`
	Resolution      Resolution     `json:"resolution"`
	FileSize        FileSize       `json:"file_size"`
	OverallQuality  OverallQuality `json:"overall_quality"`
	Issues          []string       `json:"issues"`
	Recommendations []string       `json:"recommendations"`
}

// ExtractedFields is the typed output of the best-scoring extraction
// strategy for one document side. Unmatched fields stay empty; partial
// extraction is a valid, non-error outcome.
type ExtractedFields struct {
	Name             string             `json:"name,omitempty"`
	DocumentNumber   string             `json:"document_number,omitempty"`
	DateOfBirth      string             `json:"date_of_birth,omitempty"`
	ExpirationDate   string             `json:"expiration_date,omitempty"`
	Nationality      string             `json:"nationality,omitempty"`
	Address          string             `json:"address,omitempty"`
	RawText          string             `json:"raw_text"`
	ConfidenceScores map[string]float64 `json:"confidence_scores,omitempty"`
}

// FieldComparison details how one front/back field pair compared.
type FieldComparison struct {
	Match      bool    `json:"match"`
	FrontValue string  `json:"front_value"`
	BackValue  string  `json:"back_value"`
	Score      float64 `json:"score"`
}

// ValidationResult is the outcome of cross-field consistency checking
// for one attempt.
type ValidationResult struct {
	OverallConsistency   bool                       `json:"overall_consistency"`
	MatchScore           float64                    `json:"match_score"`
	Matches              int                        `json:"matches"`
	Discrepancies        int                        `json:"discrepancies"`
	TotalChecks          int                        `json:"total_checks"`
	RequiresManualReview bool                       `json:"requires_manual_review"`
	FieldDetails         map[string]FieldComparison `json:"field_details,omitempty"`
	Notes                []string                   `json:"notes,omitempty"`
}

// FaceSignal carries the face-match/liveness outputs supplied by the
// face pipeline stage (not part of this engine).
type FaceSignal struct {
	FaceDetected  bool    `json:"face_detected"`
	MatchScore    float64 `json:"match_score"`
	LivenessScore float64 `json:"liveness_score"`
}

// VerificationError is a classified failure signal. Created once when a
// stage fails, never mutated afterwards; many may accumulate per attempt.
type VerificationError struct {
	Kind                 FailureKind `json:"kind"`
	Stage                Stage       `json:"stage"`
	Message              string      `json:"message"`
	UserMessage          string      `json:"user_message"`
	AllowReupload        bool        `json:"allow_reupload"`
	RequiresManualReview bool        `json:"requires_manual_review"`
	IsFraudAlert         bool        `json:"is_fraud_alert"`
	Timestamp            time.Time   `json:"timestamp"`
}

// VerificationOutcome is the single object returned to the caller.
// Terminal once Status is anything but pending.
type VerificationOutcome struct {
	ID        id.VerificationID  `json:"id"`
	TenantID  id.TenantID        `json:"tenant_id"`
	Status    Status             `json:"status"`
	Stage     Stage              `json:"stage"`
	Scores    map[string]float64 `json:"scores"`
	Error     *VerificationError `json:"error,omitempty"`
	IsSandbox bool               `json:"is_sandbox"`
}
