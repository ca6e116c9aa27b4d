package service

import (
	thresholdmodels "idswyft/internal/threshold/models"
	"idswyft/internal/verification/models"
)

// Numeric values for the categorical quality rubric, used by the quality
// gate and the composite score.
func qualityScore(q models.OverallQuality) float64 {
	switch q {
	case models.QualityExcellent:
		return 1.0
	case models.QualityGood:
		return 0.8
	case models.QualityFair:
		return 0.5
	default:
		return 0.2
	}
}

// qualityFailureKind picks the failure kind for a gated-out image from its
// dominant defect. Precedence: blur, then lighting, then capture problems
// (low resolution, bad file size, washed-out contrast).
func qualityFailureKind(report *models.QualityReport) models.FailureKind {
	switch {
	case report.IsBlurry:
		return models.KindBlurryImage
	case report.Brightness < 50 || report.Brightness > 200:
		return models.KindDarkImage
	case !report.Resolution.IsHighRes || !report.FileSize.IsReasonable:
		return models.KindIncompleteImage
	default:
		return models.KindBlurryImage
	}
}

// ocrConfidence derives a 0-1 confidence for the extraction output. Parsed
// fields carry per-field confidences from the winning strategy; when none
// parsed, fall back to a neutral mid value so partial extraction is not
// punished as if recognition produced nothing.
func ocrConfidence(fields *models.ExtractedFields) float64 {
	if len(fields.ConfidenceScores) == 0 {
		return 0.5
	}
	var sum float64
	for _, v := range fields.ConfidenceScores {
		sum += v
	}
	return sum / float64(len(fields.ConfidenceScores))
}

// compositeScore blends the stage signals into one 0-1 confidence. Weights
// favor what the document actually says (extraction, consistency) over how
// it was photographed. Without a face signal the face weight is
// redistributed proportionally.
func compositeScore(quality, ocr, consistency float64, face *models.FaceSignal) float64 {
	const (
		wQuality     = 0.20
		wOCR         = 0.30
		wConsistency = 0.30
		wFace        = 0.20
	)

	score := wQuality*quality + wOCR*ocr + wConsistency*consistency
	if face != nil && face.FaceDetected {
		score += wFace * face.MatchScore
		return clamp01(score)
	}
	return clamp01(score / (1 - wFace))
}

// decideStatus maps the composite confidence (0-1) onto the tenant's
// percent-scale decision bands.
func decideStatus(composite float64, eff thresholdmodels.EffectiveThresholds) models.Status {
	percent := composite * 100
	switch {
	case percent >= eff.AutoApprove:
		return models.StatusVerified
	case percent >= eff.ManualReview:
		return models.StatusManualReview
	default:
		return models.StatusFailed
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
