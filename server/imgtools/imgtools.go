// Package imgtools holds the pixel-level utilities: canonical decoding,
// perceptual hashing, and metadata stripping.
package imgtools

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrDecode marks an image that cannot be decoded at all. This is the only
// fatal condition in the pipeline; everything else degrades.
var ErrDecode = errors.New("imgtools: cannot decode image")

// Decode decodes raw bytes into an image using every registered format.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, format, nil
}

// DecodeConfig reports dimensions and format without decoding pixel data.
func DecodeConfig(data []byte) (width, height int, format string, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return cfg.Width, cfg.Height, strings.ToUpper(format), nil
}

// PerceptualHash computes the 64-bit average hash of an image: downscale to
// an 8x8 grayscale grid, take the mean intensity, and emit one bit per cell
// in row-major order ("1" when the cell exceeds the mean).
func PerceptualHash(img image.Image) string {
	gray := imaging.Grayscale(imaging.Resize(img, 8, 8, imaging.Lanczos))

	var cells [64]uint8
	var sum int
	for i := 0; i < 64; i++ {
		// After Grayscale the R, G and B channels are equal.
		cells[i] = gray.Pix[i*4]
		sum += int(cells[i])
	}
	mean := float64(sum) / 64

	var b strings.Builder
	b.Grow(64)
	for i := 0; i < 64; i++ {
		if float64(cells[i]) > mean {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// EncodeDataURL wraps raw bytes in a base64 data URL for inline transport.
func EncodeDataURL(data []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// StripMetadata rebuilds the image as a fresh pixel buffer and re-encodes it
// as JPEG at the given quality. Nothing from the original container survives,
// including vendor-specific or malformed tags the parser never recognized.
// Alpha and palette modes are flattened since JPEG carries plain RGB.
func StripMetadata(data []byte, quality int) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}

	// Clone copies decoded pixels into a freshly constructed buffer with no
	// tag dictionary attached.
	clean := imaging.Clone(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, clean, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode cleaned image: %w", err)
	}
	return buf.Bytes(), nil
}
