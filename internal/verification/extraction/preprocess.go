package extraction

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
)

// canonicalWidth is the target width recognizers see. Wider uploads are
// downscaled; narrower ones are left alone to avoid interpolation artifacts.
const canonicalWidth = 1000

// preprocess prepares image bytes for a recognition pass. PreprocessNone
// passes the original bytes through untouched.
func preprocess(data []byte, mode PreprocessMode) ([]byte, error) {
	if mode == PreprocessNone {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode for preprocessing: %w", err)
	}

	gray := toGrayscale(scaleToWidth(img, canonicalWidth))
	if mode == PreprocessEnhanced {
		stretchContrast(gray)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("encode preprocessed image: %w", err)
	}
	return buf.Bytes(), nil
}

// scaleToWidth downscales with nearest-neighbor sampling. Recognition does
// not benefit from smoother interpolation and this keeps the hot path cheap.
func scaleToWidth(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= width {
		return img
	}
	ratio := float64(width) / float64(bounds.Dx())
	height := int(float64(bounds.Dy()) * ratio)
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		srcY := bounds.Min.Y + int(float64(y)/ratio)
		for x := 0; x < width; x++ {
			srcX := bounds.Min.X + int(float64(x)/ratio)
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}

func toGrayscale(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// stretchContrast normalizes the gray range to the full 0-255 span in place.
func stretchContrast(gray *image.Gray) {
	min, max := uint8(255), uint8(0)
	for _, v := range gray.Pix {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max <= min {
		return
	}
	span := float64(max - min)
	for i, v := range gray.Pix {
		gray.Pix[i] = uint8(float64(v-min) / span * 255)
	}
}
