// Package outcome maps failure signals raised anywhere in the pipeline onto
// the closed failure taxonomy and derives the final verification status.
package outcome

import (
	"time"

	"idswyft/internal/verification/models"
)

// Classification is the routing profile of one failure kind: whether the
// user may re-upload, whether a human must look, and whether the signal
// indicates deliberate manipulation. UserMessage never exposes internals.
type Classification struct {
	AllowReupload        bool
	RequiresManualReview bool
	IsFraudAlert         bool
	UserMessage          string
}

// Classify maps a failure kind onto its routing profile. The switch is
// exhaustive over the taxonomy; unknown kinds route to manual review like
// technical failures so nothing ever falls through unclassified.
func Classify(kind models.FailureKind) Classification {
	switch kind {
	// Technical: the pipeline misbehaved, the user did nothing wrong.
	case models.KindTechnicalProcessing:
		return Classification{
			RequiresManualReview: true,
			UserMessage:          "We hit a problem processing your verification. Our team will review it shortly.",
		}
	case models.KindExtractionProcessing:
		return Classification{
			RequiresManualReview: true,
			UserMessage:          "We could not fully read your document. Our team will review it shortly.",
		}
	case models.KindFaceMatchTechnical:
		return Classification{
			RequiresManualReview: true,
			UserMessage:          "We could not complete the photo comparison. Our team will review it shortly.",
		}

	// Fraud: hard fail, never invite another attempt.
	case models.KindPhotoConsistencyFraud:
		return Classification{
			IsFraudAlert: true,
			UserMessage:  "Your verification could not be completed.",
		}
	case models.KindDataInconsistency:
		return Classification{
			IsFraudAlert: true,
			UserMessage:  "The information on your document could not be confirmed.",
		}
	case models.KindDocumentTampering:
		return Classification{
			IsFraudAlert: true,
			UserMessage:  "Your verification could not be completed.",
		}

	// Quality: the user can self-correct with a better capture.
	case models.KindBlurryImage:
		return Classification{
			AllowReupload: true,
			UserMessage:   "Your photo is too blurry. Please retake it and upload again.",
		}
	case models.KindDarkImage:
		return Classification{
			AllowReupload: true,
			UserMessage:   "Your photo is too dark. Please retake it in better lighting.",
		}
	case models.KindIncompleteImage:
		return Classification{
			AllowReupload: true,
			UserMessage:   "Part of your document is cut off. Please retake the photo showing the whole document.",
		}
	case models.KindOCRFailed:
		return Classification{
			AllowReupload: true,
			UserMessage:   "We could not read your document. Please upload a clearer photo.",
		}
	case models.KindBarcodeFailed:
		return Classification{
			AllowReupload: true,
			UserMessage:   "We could not read the back of your document. Please upload a clearer photo of the back.",
		}

	// User behavior: the check itself failed; retry policy lives upstream.
	case models.KindLivenessFailed:
		return Classification{
			UserMessage: "We could not confirm you were live during the capture.",
		}
	case models.KindFaceNotMatching:
		return Classification{
			UserMessage: "Your selfie did not match the photo on your document.",
		}

	// Ambiguous extraction: a human decides.
	case models.KindNoComparableData:
		return Classification{
			RequiresManualReview: true,
			UserMessage:          "We could not automatically confirm your document. Our team will review it shortly.",
		}
	case models.KindPartialData:
		return Classification{
			RequiresManualReview: true,
			UserMessage:          "We could only partially read your document. Our team will review it shortly.",
		}

	// Low composite confidence: every stage passed, the numbers just did
	// not add up. A better capture can change the result.
	case models.KindLowConfidence:
		return Classification{
			AllowReupload: true,
			UserMessage:   "We could not verify your document with enough confidence. Please retake your photos and try again.",
		}

	default:
		return Classification{
			RequiresManualReview: true,
			UserMessage:          "We hit a problem processing your verification. Our team will review it shortly.",
		}
	}
}

// NewError builds the immutable failure record carried on an outcome.
// The technical message stays in logs and audit; only UserMessage is shown
// to the end user.
func NewError(kind models.FailureKind, stage models.Stage, message string, now time.Time) *models.VerificationError {
	c := Classify(kind)
	return &models.VerificationError{
		Kind:                 kind,
		Stage:                stage,
		Message:              message,
		UserMessage:          c.UserMessage,
		AllowReupload:        c.AllowReupload,
		RequiresManualReview: c.RequiresManualReview,
		IsFraudAlert:         c.IsFraudAlert,
		Timestamp:            now,
	}
}

// StatusForKind derives the terminal status for a failure kind:
// manual_review when the profile demands a human, failed otherwise.
func StatusForKind(kind models.FailureKind) models.Status {
	if Classify(kind).RequiresManualReview {
		return models.StatusManualReview
	}
	return models.StatusFailed
}
