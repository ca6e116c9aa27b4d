// Package extraction turns a document image into typed fields by trying an
// ordered list of (preprocessing, recognition-mode) strategies against an
// external text-recognition collaborator, keeping the best-scoring result.
package extraction

import "context"

// RecognitionMode hints page segmentation behavior to the recognizer.
type RecognitionMode string

const (
	ModeAuto        RecognitionMode = "auto"
	ModeSingleBlock RecognitionMode = "single_block"
	ModeAutoOrient  RecognitionMode = "auto_orient"
)

// PreprocessMode selects how the image is prepared before recognition.
type PreprocessMode string

const (
	PreprocessNone     PreprocessMode = "none"
	PreprocessMinimal  PreprocessMode = "minimal"
	PreprocessEnhanced PreprocessMode = "enhanced"
)

// Recognition is the raw output of the external text-recognition collaborator.
type Recognition struct {
	Text       string
	Confidence float64 // recognizer-reported, 0-100
}

// TextRecognizer is the port to the external OCR collaborator. The engine
// never performs recognition itself.
type TextRecognizer interface {
	Recognize(ctx context.Context, image []byte, mode RecognitionMode) (Recognition, error)
}

// Strategy is one preprocessing/recognition configuration tried in order.
type Strategy struct {
	Name       string
	Preprocess PreprocessMode
	Mode       RecognitionMode
}

// DefaultStrategies returns the ordered strategy list. Cheapest and most
// reliable configurations come first so the early-exit check usually stops
// after one or two recognizer calls.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "enhanced_single_block", Preprocess: PreprocessEnhanced, Mode: ModeSingleBlock},
		{Name: "minimal_auto_orient", Preprocess: PreprocessMinimal, Mode: ModeAutoOrient},
		{Name: "raw_auto", Preprocess: PreprocessNone, Mode: ModeAuto},
		{Name: "raw_single_block", Preprocess: PreprocessNone, Mode: ModeSingleBlock},
	}
}
