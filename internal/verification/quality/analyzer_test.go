package quality

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idswyft/internal/verification/models"
)

// noiseImage produces a deterministic high-detail image: base luminance with
// uniform noise. Reads as sharp and well-lit to the analyzer.
func noiseImage(t *testing.T, width, height int, base, amplitude int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := base + rng.Intn(2*amplitude+1) - amplitude
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			img.Set(x, y, color.RGBA{R: uint8(v), G: uint8(v), B: uint8(v), A: 255})
		}
	}
	return encodePNG(t, img)
}

// flatImage produces a uniform gray image: zero gradient, zero contrast.
func flatImage(t *testing.T, width, height int, gray uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: gray, G: gray, B: gray, A: 255})
		}
	}
	return encodePNG(t, img)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAnalyze_SharpHighResImageIsExcellent(t *testing.T) {
	analyzer := NewAnalyzer()

	data := noiseImage(t, 1600, 1200, 140, 80)
	report, err := analyzer.Analyze(data)
	require.NoError(t, err)

	assert.False(t, report.IsBlurry)
	assert.True(t, report.Resolution.IsHighRes)
	assert.True(t, report.FileSize.IsReasonable)
	assert.InDelta(t, 140, report.Brightness, 15)
	assert.Greater(t, report.Contrast, 20.0)
	assert.Equal(t, models.QualityExcellent, report.OverallQuality)
	assert.Empty(t, report.Issues)
	assert.Empty(t, report.Recommendations)
}

func TestAnalyze_FlatLowResImageIsPoor(t *testing.T) {
	analyzer := NewAnalyzer()

	report, err := analyzer.Analyze(flatImage(t, 200, 150, 128))
	require.NoError(t, err)

	assert.True(t, report.IsBlurry)
	assert.False(t, report.Resolution.IsHighRes)
	assert.False(t, report.FileSize.IsReasonable)
	assert.LessOrEqual(t, report.Contrast, 20.0)
	assert.Equal(t, models.QualityPoor, report.OverallQuality)
	assert.Contains(t, report.Issues, "image appears blurry")
	assert.Contains(t, report.Issues, "image has very low contrast")
	assert.NotEmpty(t, report.Recommendations)
}

func TestAnalyze_DarkImageReportsDarkness(t *testing.T) {
	analyzer := NewAnalyzer()

	report, err := analyzer.Analyze(flatImage(t, 200, 150, 20))
	require.NoError(t, err)

	assert.Less(t, report.Brightness, 50.0)
	assert.Contains(t, report.Issues, "image is too dark")
}

func TestAnalyze_OverexposedImageReportsGlare(t *testing.T) {
	analyzer := NewAnalyzer()

	report, err := analyzer.Analyze(flatImage(t, 200, 150, 240))
	require.NoError(t, err)

	assert.Greater(t, report.Brightness, 200.0)
	assert.Contains(t, report.Issues, "image is overexposed")
}

func TestAnalyze_UndecodableBytesFail(t *testing.T) {
	analyzer := NewAnalyzer()

	_, err := analyzer.Analyze([]byte("definitely not an image"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}

// Re-running analysis on identical bytes must yield an identical report;
// the quality rating is a pure function of the image content.
func TestAnalyze_IsDeterministic(t *testing.T) {
	analyzer := NewAnalyzer()
	data := noiseImage(t, 800, 600, 120, 60)

	first, err := analyzer.Analyze(data)
	require.NoError(t, err)
	second, err := analyzer.Analyze(data)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
