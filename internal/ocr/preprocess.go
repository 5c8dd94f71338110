package ocr

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// DefaultMaxSide caps the longest image side before OCR.
const DefaultMaxSide = 2400

// Preprocess grayscales, bounds, contrasts and sharpens an image for OCR and
// returns it PNG-encoded. Formats image.Decode cannot read return an error.
func Preprocess(data []byte, maxSide int) ([]byte, error) {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	img := imaging.Grayscale(src)
	b := img.Bounds()
	if b.Dx() > maxSide || b.Dy() > maxSide {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}
	img = imaging.AdjustContrast(img, 20)
	img = imaging.Sharpen(img, 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
