package models

// FailureKind is the closed taxonomy of verification failures. Every kind
// maps to exactly one reupload/manual-review/fraud profile in the outcome
// classifier; the mapping is checked exhaustively in tests.
type FailureKind string

const (
	// Technical: the pipeline itself misbehaved. Routed to manual review
	// so a human can complete the check; never treated as fraud.
	KindTechnicalProcessing  FailureKind = "TECHNICAL_PROCESSING_ERROR"
	KindExtractionProcessing FailureKind = "EXTRACTION_PROCESSING_ERROR"
	KindFaceMatchTechnical   FailureKind = "FACE_MATCH_TECHNICAL_ERROR"

	// Fraud: deliberate manipulation signals. Hard failed, no reupload.
	KindPhotoConsistencyFraud FailureKind = "PHOTO_CONSISTENCY_FRAUD"
	KindDataInconsistency     FailureKind = "DATA_INCONSISTENCY_FRAUD"
	KindDocumentTampering     FailureKind = "DOCUMENT_TAMPERING"

	// Quality: the user can self-correct by re-uploading a better capture.
	KindBlurryImage     FailureKind = "BLURRY_IMAGE"
	KindDarkImage       FailureKind = "DARK_IMAGE"
	KindIncompleteImage FailureKind = "INCOMPLETE_DOCUMENT"
	KindOCRFailed       FailureKind = "OCR_EXTRACTION_FAILED"
	KindBarcodeFailed   FailureKind = "BARCODE_EXTRACTION_FAILED"

	// User behavior: checks the user failed outright. Reupload at this
	// layer is not offered; retry policy lives with the caller.
	KindLivenessFailed  FailureKind = "LIVENESS_CHECK_FAILED"
	KindFaceNotMatching FailureKind = "FACE_NOT_MATCHING"

	// Ambiguous extraction: not enough comparable data to decide either way.
	KindNoComparableData FailureKind = "NO_COMPARABLE_DATA"
	KindPartialData      FailureKind = "PARTIAL_DATA_EXTRACTED"

	// Every stage passed but the composite confidence landed below the
	// tenant's manual-review band. Not a recognition failure; a fresh
	// capture may well clear the bands.
	KindLowConfidence FailureKind = "LOW_CONFIDENCE_SCORE"
)

// AllFailureKinds lists every kind for exhaustiveness checks in tests.
func AllFailureKinds() []FailureKind {
	return []FailureKind{
		KindTechnicalProcessing,
		KindExtractionProcessing,
		KindFaceMatchTechnical,
		KindPhotoConsistencyFraud,
		KindDataInconsistency,
		KindDocumentTampering,
		KindBlurryImage,
		KindDarkImage,
		KindIncompleteImage,
		KindOCRFailed,
		KindBarcodeFailed,
		KindLivenessFailed,
		KindFaceNotMatching,
		KindNoComparableData,
		KindPartialData,
		KindLowConfidence,
	}
}
