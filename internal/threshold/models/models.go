// Package models defines per-tenant verification thresholds: high-level
// policy knobs an admin reasons about, technical overrides for operators
// who need exact control, and the pure resolution logic that combines both
// with system defaults into the numbers the engine consumes.
package models

import (
	"fmt"
	"time"

	id "idswyft/pkg/domain"
	dErrors "idswyft/pkg/domain-errors"
)

// ThresholdSet is the versioned per-tenant configuration aggregate.
//
// Invariants (enforced on every write):
//   - ManualReviewThreshold < AutoApproveThreshold
//   - every set technical override lies within its fixed valid range
//   - MaxAttempts >= 1
type ThresholdSet struct {
	TenantID id.TenantID `json:"tenant_id"`
	Version  int         `json:"version"`

	// Policy knobs (percent scale, 0-100).
	AutoApproveThreshold  float64 `json:"auto_approve_threshold"`
	ManualReviewThreshold float64 `json:"manual_review_threshold"`
	RequireLiveness       bool    `json:"require_liveness"`
	RequireBackOfID       bool    `json:"require_back_of_id"`
	MaxAttempts           int     `json:"max_attempts"`

	// Technical overrides (0-1 scale). Nil means "derive from defaults
	// and policy knobs".
	Overrides TechnicalOverrides `json:"overrides"`

	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// TechnicalOverrides holds optional low-level cutoffs. Each field is
// independently nullable.
type TechnicalOverrides struct {
	PhotoConsistency       *float64 `json:"photo_consistency,omitempty"`
	FaceMatchProduction    *float64 `json:"face_match_production,omitempty"`
	FaceMatchSandbox       *float64 `json:"face_match_sandbox,omitempty"`
	LivenessProduction     *float64 `json:"liveness_production,omitempty"`
	LivenessSandbox        *float64 `json:"liveness_sandbox,omitempty"`
	CrossValidation        *float64 `json:"cross_validation,omitempty"`
	QualityFloor           *float64 `json:"quality_floor,omitempty"`
	OCRConfidenceFloor     *float64 `json:"ocr_confidence_floor,omitempty"`
	BarcodeConfidenceFloor *float64 `json:"barcode_confidence_floor,omitempty"`
}

// EffectiveThresholds is the fully resolved, mode-specific view the
// verification pipeline consumes. FaceMatch and Liveness already reflect
// the sandbox flag.
type EffectiveThresholds struct {
	AutoApprove     float64 `json:"auto_approve"`
	ManualReview    float64 `json:"manual_review"`
	RequireLiveness bool    `json:"require_liveness"`
	RequireBackOfID bool    `json:"require_back_of_id"`
	MaxAttempts     int     `json:"max_attempts"`

	PhotoConsistency       float64 `json:"photo_consistency"`
	FaceMatch              float64 `json:"face_match"`
	Liveness               float64 `json:"liveness"`
	CrossValidation        float64 `json:"cross_validation"`
	QualityFloor           float64 `json:"quality_floor"`
	OCRConfidenceFloor     float64 `json:"ocr_confidence_floor"`
	BarcodeConfidenceFloor float64 `json:"barcode_confidence_floor"`
}

// Update is a partial admin update; nil fields keep their current value.
type Update struct {
	AutoApproveThreshold  *float64 `json:"auto_approve_threshold,omitempty"`
	ManualReviewThreshold *float64 `json:"manual_review_threshold,omitempty"`
	RequireLiveness       *bool    `json:"require_liveness,omitempty"`
	RequireBackOfID       *bool    `json:"require_back_of_id,omitempty"`
	MaxAttempts           *int     `json:"max_attempts,omitempty"`
	Overrides             *TechnicalOverrides `json:"overrides,omitempty"`
}

// System defaults applied when a tenant has no stored record.
const (
	DefaultAutoApprove  = 85.0
	DefaultManualReview = 60.0
	DefaultMaxAttempts  = 3

	defaultPhotoConsistency  = 0.85
	defaultCrossValidation   = 0.70
	defaultQualityFloor      = 0.50
	defaultOCRConfidence     = 0.60
	defaultBarcodeConfidence = 0.70

	// Bases and adjustment ranges for thresholds derived from the
	// auto-approve knob.
	faceMatchProdBase     = 0.80
	faceMatchProdRange    = 0.10
	faceMatchSandboxBase  = 0.60
	faceMatchSandboxRange = 0.10
	livenessProdBase      = 0.70
	livenessProdRange     = 0.15
	livenessSandboxBase   = 0.40
	livenessSandboxRange  = 0.20

	// Lenient floors applied when a tenant opts out of liveness.
	lenientLivenessProd    = 0.30
	lenientLivenessSandbox = 0.10
)

// Defaults returns a fresh system-default threshold set for a tenant.
// Used when no stored record exists; not persisted on read.
func Defaults(tenantID id.TenantID) *ThresholdSet {
	return &ThresholdSet{
		TenantID:              tenantID,
		Version:               0,
		AutoApproveThreshold:  DefaultAutoApprove,
		ManualReviewThreshold: DefaultManualReview,
		RequireLiveness:       true,
		RequireBackOfID:       false,
		MaxAttempts:           DefaultMaxAttempts,
	}
}

// validRange bounds one technical threshold. Values outside are rejected
// on write and clamped when produced by derivation.
type validRange struct {
	min, max float64
}

func (r validRange) clamp(v float64) float64 {
	if v < r.min {
		return r.min
	}
	if v > r.max {
		return r.max
	}
	return v
}

func (r validRange) contains(v float64) bool {
	return v >= r.min && v <= r.max
}

var technicalRanges = map[string]validRange{
	"photo_consistency":        {0.50, 0.99},
	"face_match_production":    {0.60, 0.99},
	"face_match_sandbox":       {0.30, 0.95},
	"liveness_production":      {0.50, 0.99},
	"liveness_sandbox":         {0.10, 0.90},
	"cross_validation":         {0.40, 0.95},
	"quality_floor":            {0.20, 0.90},
	"ocr_confidence_floor":     {0.10, 0.95},
	"barcode_confidence_floor": {0.10, 0.95},
}

// Validate enforces the write invariants, reporting every violated field
// so admin tooling can surface them together.
func (s *ThresholdSet) Validate() error {
	fields := map[string]string{}

	if s.AutoApproveThreshold < 50 || s.AutoApproveThreshold > 100 {
		fields["auto_approve_threshold"] = "must be between 50 and 100"
	}
	if s.ManualReviewThreshold < 0 || s.ManualReviewThreshold > 100 {
		fields["manual_review_threshold"] = "must be between 0 and 100"
	}
	if s.ManualReviewThreshold >= s.AutoApproveThreshold {
		fields["manual_review_threshold"] = "must be strictly below auto_approve_threshold"
	}
	if s.MaxAttempts < 1 {
		fields["max_attempts"] = "must be at least 1"
	}

	for name, value := range map[string]*float64{
		"photo_consistency":        s.Overrides.PhotoConsistency,
		"face_match_production":    s.Overrides.FaceMatchProduction,
		"face_match_sandbox":       s.Overrides.FaceMatchSandbox,
		"liveness_production":      s.Overrides.LivenessProduction,
		"liveness_sandbox":         s.Overrides.LivenessSandbox,
		"cross_validation":         s.Overrides.CrossValidation,
		"quality_floor":            s.Overrides.QualityFloor,
		"ocr_confidence_floor":     s.Overrides.OCRConfidenceFloor,
		"barcode_confidence_floor": s.Overrides.BarcodeConfidenceFloor,
	} {
		if value == nil {
			continue
		}
		r := technicalRanges[name]
		if !r.contains(*value) {
			fields[name] = fmt.Sprintf("must be between %.2f and %.2f", r.min, r.max)
		}
	}

	if len(fields) > 0 {
		return dErrors.WithFields(dErrors.CodeValidation, "threshold values out of range", fields)
	}
	return nil
}

// Apply overlays a partial update onto a copy of the set and bumps nothing;
// callers validate and version the result.
func (s *ThresholdSet) Apply(u Update) *ThresholdSet {
	next := *s
	if u.AutoApproveThreshold != nil {
		next.AutoApproveThreshold = *u.AutoApproveThreshold
	}
	if u.ManualReviewThreshold != nil {
		next.ManualReviewThreshold = *u.ManualReviewThreshold
	}
	if u.RequireLiveness != nil {
		next.RequireLiveness = *u.RequireLiveness
	}
	if u.RequireBackOfID != nil {
		next.RequireBackOfID = *u.RequireBackOfID
	}
	if u.MaxAttempts != nil {
		next.MaxAttempts = *u.MaxAttempts
	}
	if u.Overrides != nil {
		o := &next.Overrides
		src := u.Overrides
		if src.PhotoConsistency != nil {
			o.PhotoConsistency = src.PhotoConsistency
		}
		if src.FaceMatchProduction != nil {
			o.FaceMatchProduction = src.FaceMatchProduction
		}
		if src.FaceMatchSandbox != nil {
			o.FaceMatchSandbox = src.FaceMatchSandbox
		}
		if src.LivenessProduction != nil {
			o.LivenessProduction = src.LivenessProduction
		}
		if src.LivenessSandbox != nil {
			o.LivenessSandbox = src.LivenessSandbox
		}
		if src.CrossValidation != nil {
			o.CrossValidation = src.CrossValidation
		}
		if src.QualityFloor != nil {
			o.QualityFloor = src.QualityFloor
		}
		if src.OCRConfidenceFloor != nil {
			o.OCRConfidenceFloor = src.OCRConfidenceFloor
		}
		if src.BarcodeConfidenceFloor != nil {
			o.BarcodeConfidenceFloor = src.BarcodeConfidenceFloor
		}
	}
	return &next
}

// EquivalentTo reports whether two sets carry identical configuration,
// ignoring bookkeeping (version, timestamps, actor). Used to keep Update
// idempotent under retried identical input.
func (s *ThresholdSet) EquivalentTo(other *ThresholdSet) bool {
	return s.TenantID == other.TenantID &&
		s.AutoApproveThreshold == other.AutoApproveThreshold &&
		s.ManualReviewThreshold == other.ManualReviewThreshold &&
		s.RequireLiveness == other.RequireLiveness &&
		s.RequireBackOfID == other.RequireBackOfID &&
		s.MaxAttempts == other.MaxAttempts &&
		s.Overrides.EquivalentTo(other.Overrides)
}

// EquivalentTo compares override values, not pointer identity: a retried
// update decodes into freshly allocated pointers and must still compare
// equal.
func (o TechnicalOverrides) EquivalentTo(p TechnicalOverrides) bool {
	for _, pair := range [][2]*float64{
		{o.PhotoConsistency, p.PhotoConsistency},
		{o.FaceMatchProduction, p.FaceMatchProduction},
		{o.FaceMatchSandbox, p.FaceMatchSandbox},
		{o.LivenessProduction, p.LivenessProduction},
		{o.LivenessSandbox, p.LivenessSandbox},
		{o.CrossValidation, p.CrossValidation},
		{o.QualityFloor, p.QualityFloor},
		{o.OCRConfidenceFloor, p.OCRConfidenceFloor},
		{o.BarcodeConfidenceFloor, p.BarcodeConfidenceFloor},
	} {
		if !floatPtrEqual(pair[0], pair[1]) {
			return false
		}
	}
	return true
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Resolve combines system defaults, stored overrides, and values derived
// from the auto-approve knob into the mode-specific effective thresholds.
// Pure function: no I/O, no side effects.
func Resolve(s *ThresholdSet, sandbox bool) EffectiveThresholds {
	eff := EffectiveThresholds{
		AutoApprove:            s.AutoApproveThreshold,
		ManualReview:           s.ManualReviewThreshold,
		RequireLiveness:        s.RequireLiveness,
		RequireBackOfID:        s.RequireBackOfID,
		MaxAttempts:            s.MaxAttempts,
		PhotoConsistency:       defaultPhotoConsistency,
		CrossValidation:        defaultCrossValidation,
		QualityFloor:           defaultQualityFloor,
		OCRConfidenceFloor:     defaultOCRConfidence,
		BarcodeConfidenceFloor: defaultBarcodeConfidence,
	}

	if v := s.Overrides.PhotoConsistency; v != nil {
		eff.PhotoConsistency = *v
	}
	if v := s.Overrides.CrossValidation; v != nil {
		eff.CrossValidation = *v
	}
	if v := s.Overrides.QualityFloor; v != nil {
		eff.QualityFloor = *v
	}
	if v := s.Overrides.OCRConfidenceFloor; v != nil {
		eff.OCRConfidenceFloor = *v
	}
	if v := s.Overrides.BarcodeConfidenceFloor; v != nil {
		eff.BarcodeConfidenceFloor = *v
	}

	eff.FaceMatch = resolveFaceMatch(s, sandbox)
	eff.Liveness = resolveLiveness(s, sandbox)
	return eff
}

// scaleFactor maps the auto-approve knob onto [0,1] for derivation.
// The linear window is [70,95]; values outside clamp to the edges. The
// knob itself may legally sit anywhere in [50,100].
func scaleFactor(autoApprove float64) float64 {
	scale := (autoApprove - 70) / 25
	if scale < 0 {
		return 0
	}
	if scale > 1 {
		return 1
	}
	return scale
}

func resolveFaceMatch(s *ThresholdSet, sandbox bool) float64 {
	if sandbox {
		if v := s.Overrides.FaceMatchSandbox; v != nil {
			return *v
		}
		derived := faceMatchSandboxBase + scaleFactor(s.AutoApproveThreshold)*faceMatchSandboxRange
		return technicalRanges["face_match_sandbox"].clamp(derived)
	}
	if v := s.Overrides.FaceMatchProduction; v != nil {
		return *v
	}
	derived := faceMatchProdBase + scaleFactor(s.AutoApproveThreshold)*faceMatchProdRange
	return technicalRanges["face_match_production"].clamp(derived)
}

func resolveLiveness(s *ThresholdSet, sandbox bool) float64 {
	// Opting out of liveness forces lenient fixed floors regardless of
	// overrides or derivation.
	if !s.RequireLiveness {
		if sandbox {
			return lenientLivenessSandbox
		}
		return lenientLivenessProd
	}
	if sandbox {
		if v := s.Overrides.LivenessSandbox; v != nil {
			return *v
		}
		derived := livenessSandboxBase + scaleFactor(s.AutoApproveThreshold)*livenessSandboxRange
		return technicalRanges["liveness_sandbox"].clamp(derived)
	}
	if v := s.Overrides.LivenessProduction; v != nil {
		return *v
	}
	derived := livenessProdBase + scaleFactor(s.AutoApproveThreshold)*livenessProdRange
	return technicalRanges["liveness_production"].clamp(derived)
}
