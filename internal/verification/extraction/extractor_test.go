package extraction

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idswyft/internal/verification/models"
)

const richLicenseText = `CALIFORNIA
JANE DOE
DL D1234567
DOB 01/15/1990
EXP 08/31/2027
ADDRESS 123 MAIN ST SACRAMENTO CA
CLASS C SEX F EYES BRN
RESTRICTIONS NONE ENDORSEMENTS NONE`

// fakeRecognizer returns scripted recognitions keyed by recognition mode
// and records call order.
type fakeRecognizer struct {
	byMode map[RecognitionMode]Recognition
	errs   map[RecognitionMode]error
	calls  []RecognitionMode
}

func (f *fakeRecognizer) Recognize(_ context.Context, _ []byte, mode RecognitionMode) (Recognition, error) {
	f.calls = append(f.calls, mode)
	if err := f.errs[mode]; err != nil {
		return Recognition{}, err
	}
	return f.byMode[mode], nil
}

func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v := uint8((x ^ y) * 16)
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestExtract_KeepsBestScoringStrategy(t *testing.T) {
	rec := &fakeRecognizer{byMode: map[RecognitionMode]Recognition{
		ModeSingleBlock: {Text: "zz", Confidence: 40},
		ModeAutoOrient:  {Text: richLicenseText, Confidence: 60},
		ModeAuto:        {Text: "short text only", Confidence: 90},
	}}
	extractor, err := New(rec)
	require.NoError(t, err)

	fields, err := extractor.Extract(context.Background(), testImage(t), models.DocTypeDriversLicense)
	require.NoError(t, err)

	assert.Equal(t, "JANE DOE", fields.Name)
	assert.Equal(t, "D1234567", fields.DocumentNumber)
	assert.Equal(t, "01/15/1990", fields.DateOfBirth)
	assert.Equal(t, "08/31/2027", fields.ExpirationDate)
	assert.Contains(t, fields.Address, "123 MAIN ST")
	assert.Equal(t, richLicenseText, fields.RawText)
}

func TestExtract_GoodEnoughResultStopsEarly(t *testing.T) {
	rec := &fakeRecognizer{byMode: map[RecognitionMode]Recognition{
		// First strategy (enhanced + single block) already clears every
		// early-exit threshold.
		ModeSingleBlock: {Text: richLicenseText, Confidence: 92},
		ModeAutoOrient:  {Text: richLicenseText, Confidence: 92},
	}}
	extractor, err := New(rec)
	require.NoError(t, err)

	_, err = extractor.Extract(context.Background(), testImage(t), models.DocTypeDriversLicense)
	require.NoError(t, err)

	assert.Equal(t, []RecognitionMode{ModeSingleBlock}, rec.calls)
}

func TestExtract_TieBreaksOnConfidence(t *testing.T) {
	// Same text everywhere, so identical scores; the higher-confidence
	// recognition must win the tie.
	const text = "the quick brown fox jumps over the lazy dog"
	rec := &fakeRecognizer{byMode: map[RecognitionMode]Recognition{
		ModeSingleBlock: {Text: text, Confidence: 30},
		ModeAutoOrient:  {Text: text, Confidence: 70},
		ModeAuto:        {Text: text, Confidence: 50},
	}}
	extractor, err := New(rec)
	require.NoError(t, err)

	fields, err := extractor.Extract(context.Background(), testImage(t), models.DocTypeOther)
	require.NoError(t, err)

	assert.Len(t, rec.calls, 4)
	assert.Equal(t, text, fields.RawText)
}

func TestExtract_WhitespaceOnlyFails(t *testing.T) {
	rec := &fakeRecognizer{byMode: map[RecognitionMode]Recognition{
		ModeSingleBlock: {Text: "   \n\t  ", Confidence: 10},
		ModeAutoOrient:  {Text: "", Confidence: 0},
		ModeAuto:        {Text: " \n ", Confidence: 5},
	}}
	extractor, err := New(rec)
	require.NoError(t, err)

	_, err = extractor.Extract(context.Background(), testImage(t), models.DocTypeDriversLicense)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtract_SkipsFailingStrategies(t *testing.T) {
	rec := &fakeRecognizer{
		byMode: map[RecognitionMode]Recognition{
			ModeAuto: {Text: richLicenseText, Confidence: 80},
		},
		errs: map[RecognitionMode]error{
			ModeSingleBlock: errors.New("recognizer crashed"),
			ModeAutoOrient:  errors.New("recognizer crashed"),
		},
	}
	extractor, err := New(rec)
	require.NoError(t, err)

	fields, err := extractor.Extract(context.Background(), testImage(t), models.DocTypeDriversLicense)
	require.NoError(t, err)
	assert.Equal(t, "JANE DOE", fields.Name)
}

func TestExtract_NilRecognizerRejected(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

// Given a fixed strategy list and deterministic recognizer outputs, the
// same image must always yield the same chosen strategy and fields.
func TestExtract_IsDeterministic(t *testing.T) {
	newRec := func() *fakeRecognizer {
		return &fakeRecognizer{byMode: map[RecognitionMode]Recognition{
			ModeSingleBlock: {Text: "zz", Confidence: 40},
			ModeAutoOrient:  {Text: richLicenseText, Confidence: 60},
			ModeAuto:        {Text: "short text only", Confidence: 90},
		}}
	}
	img := testImage(t)

	first, err := mustExtract(t, newRec(), img)
	require.NoError(t, err)
	second, err := mustExtract(t, newRec(), img)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func mustExtract(t *testing.T, rec TextRecognizer, img []byte) (*models.ExtractedFields, error) {
	t.Helper()
	extractor, err := New(rec)
	require.NoError(t, err)
	return extractor.Extract(context.Background(), img, models.DocTypeDriversLicense)
}

func TestScoreText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{name: "empty", text: "", want: 0},
		{name: "whitespace only", text: "  \n\t ", want: 0},
		{name: "short fragment", text: "abc def", want: 0},
		{name: "medium fragment scores length and variety", text: "the quick brown fox jumps", want: 0.2},
		{
			name: "rich document text caps near the top",
			text: richLicenseText,
			want: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ScoreText(tt.text), 0.001)
		})
	}
}
