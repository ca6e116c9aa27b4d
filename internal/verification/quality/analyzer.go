// Package quality scores uploaded document images before they are sent to
// extraction. The analyzer is read-only and deterministic: identical bytes
// always produce an identical report.
package quality

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"idswyft/internal/verification/models"
)

// ErrDecode is returned when the payload is not a decodable image.
var ErrDecode = errors.New("cannot decode image")

const (
	// sampleStride subsamples every 4th pixel in each dimension. Quality
	// scoring does not need full resolution and uploads can be large.
	sampleStride = 4

	// blurThreshold separates blurry from sharp mean Sobel gradient
	// magnitudes. Empirical; tuned against real document captures.
	blurThreshold = 100.0

	minWidth  = 800
	minHeight = 600

	minFileBytes = 50 * 1024
	maxFileBytes = 10 * 1024 * 1024

	brightnessFloor = 50.0
	brightnessCeil  = 200.0
	contrastFloor   = 20.0
)

// Analyzer computes quality reports for single images.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze decodes the image and scores sharpness, brightness, contrast,
// resolution, and file size into a QualityReport.
func (a *Analyzer) Analyze(data []byte) (*models.QualityReport, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	lum := sampleLuminance(img)
	brightness, contrast := brightnessContrast(lum)
	blurScore := meanGradient(lum)

	report := &models.QualityReport{
		IsBlurry:   blurScore < blurThreshold,
		BlurScore:  blurScore,
		Brightness: brightness,
		Contrast:   contrast,
		Resolution: models.Resolution{
			Width:     width,
			Height:    height,
			IsHighRes: width >= minWidth && height >= minHeight,
		},
		FileSize: models.FileSize{
			Bytes:        len(data),
			IsReasonable: len(data) >= minFileBytes && len(data) <= maxFileBytes,
		},
	}

	report.OverallQuality = rateOverall(report)
	report.Issues, report.Recommendations = diagnose(report)
	return report, nil
}

// sampleLuminance builds a subsampled grid of Rec. 601 luma values in [0,255].
func sampleLuminance(img image.Image) [][]float64 {
	bounds := img.Bounds()
	rows := make([][]float64, 0, bounds.Dy()/sampleStride+1)
	for y := bounds.Min.Y; y < bounds.Max.Y; y += sampleStride {
		row := make([]float64, 0, bounds.Dx()/sampleStride+1)
		for x := bounds.Min.X; x < bounds.Max.X; x += sampleStride {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA returns 16-bit channels; scale down to 8-bit.
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			row = append(row, lum)
		}
		rows = append(rows, row)
	}
	return rows
}

// brightnessContrast returns the mean and standard deviation of the sample.
func brightnessContrast(lum [][]float64) (mean, stddev float64) {
	var sum float64
	var n int
	for _, row := range lum {
		for _, v := range row {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	mean = sum / float64(n)

	var sq float64
	for _, row := range lum {
		for _, v := range row {
			d := v - mean
			sq += d * d
		}
	}
	stddev = math.Sqrt(sq / float64(n))
	return mean, stddev
}

// meanGradient estimates sharpness as the average Sobel gradient magnitude
// over the subsampled luminance grid.
func meanGradient(lum [][]float64) float64 {
	if len(lum) < 3 || len(lum[0]) < 3 {
		return 0
	}
	var sum float64
	var n int
	for y := 1; y < len(lum)-1; y++ {
		row := lum[y]
		for x := 1; x < len(row)-1; x++ {
			gx := -lum[y-1][x-1] + lum[y-1][x+1] +
				-2*lum[y][x-1] + 2*lum[y][x+1] +
				-lum[y+1][x-1] + lum[y+1][x+1]
			gy := -lum[y-1][x-1] - 2*lum[y-1][x] - lum[y-1][x+1] +
				lum[y+1][x-1] + 2*lum[y+1][x] + lum[y+1][x+1]
			sum += math.Sqrt(gx*gx + gy*gy)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// rateOverall applies the 5-point rubric: sharp, high-res, brightness in
// range, reasonable file size, contrast above floor.
func rateOverall(r *models.QualityReport) models.OverallQuality {
	points := 0
	if !r.IsBlurry {
		points++
	}
	if r.Resolution.IsHighRes {
		points++
	}
	if r.Brightness >= brightnessFloor && r.Brightness <= brightnessCeil {
		points++
	}
	if r.FileSize.IsReasonable {
		points++
	}
	if r.Contrast > contrastFloor {
		points++
	}

	switch {
	case points == 5:
		return models.QualityExcellent
	case points >= 4:
		return models.QualityGood
	case points >= 2:
		return models.QualityFair
	default:
		return models.QualityPoor
	}
}

// diagnose derives user-facing issues and remediation hints from the
// individual checks. Deterministic: same report, same output order.
func diagnose(r *models.QualityReport) (issues, recommendations []string) {
	issues = []string{}
	recommendations = []string{}

	if r.IsBlurry {
		issues = append(issues, "image appears blurry")
		recommendations = append(recommendations, "hold the camera steady and ensure the document is in focus")
	}
	if !r.Resolution.IsHighRes {
		issues = append(issues, fmt.Sprintf("resolution %dx%d is below the %dx%d minimum", r.Resolution.Width, r.Resolution.Height, minWidth, minHeight))
		recommendations = append(recommendations, "capture the document with a higher resolution camera setting")
	}
	if r.Brightness < brightnessFloor {
		issues = append(issues, "image is too dark")
		recommendations = append(recommendations, "retake the photo in better lighting")
	} else if r.Brightness > brightnessCeil {
		issues = append(issues, "image is overexposed")
		recommendations = append(recommendations, "avoid direct light or flash glare on the document")
	}
	if !r.FileSize.IsReasonable {
		if r.FileSize.Bytes < minFileBytes {
			issues = append(issues, "file size is suspiciously small")
			recommendations = append(recommendations, "upload the original capture rather than a compressed copy")
		} else {
			issues = append(issues, "file size exceeds the upload limit")
			recommendations = append(recommendations, "re-export the image below 10 MB")
		}
	}
	if r.Contrast <= contrastFloor {
		issues = append(issues, "image has very low contrast")
		recommendations = append(recommendations, "place the document on a contrasting background")
	}
	return issues, recommendations
}
