package imgtools

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/priyansh-dev/privacy-lens/server/exif"
)

func solidImage(c color.RGBA, w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func splitImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.Set(x, y, color.RGBA{A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPerceptualHashShape(t *testing.T) {
	hash := PerceptualHash(splitImage(64, 64))

	assert.Len(t, hash, 64)
	assert.Equal(t, 64, strings.Count(hash, "0")+strings.Count(hash, "1"))
}

func TestPerceptualHashDeterministic(t *testing.T) {
	img := splitImage(100, 80)
	assert.Equal(t, PerceptualHash(img), PerceptualHash(img))
}

func TestPerceptualHashSolidColorIsAllZeros(t *testing.T) {
	// Every cell equals the mean, so no bit exceeds it.
	hash := PerceptualHash(solidImage(color.RGBA{R: 120, G: 120, B: 120, A: 255}, 32, 32))
	assert.Equal(t, strings.Repeat("0", 64), hash)
}

func TestPerceptualHashDistinguishesContent(t *testing.T) {
	dark := PerceptualHash(solidImage(color.RGBA{A: 255}, 32, 32))
	split := PerceptualHash(splitImage(32, 32))
	assert.NotEqual(t, dark, split)
}

func TestDecodeConfigReportsFormat(t *testing.T) {
	data := encodePNG(t, solidImage(color.RGBA{R: 10, A: 255}, 20, 10))

	width, height, format, err := DecodeConfig(data)
	require.NoError(t, err)
	assert.Equal(t, 20, width)
	assert.Equal(t, 10, height)
	assert.Equal(t, "PNG", format)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := Decode([]byte("not an image"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)

	_, _, _, err = DecodeConfig(nil)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestStripMetadataReencodesAsJPEG(t *testing.T) {
	data := encodePNG(t, splitImage(48, 32))

	cleaned, err := StripMetadata(data, 95)
	require.NoError(t, err)

	width, height, format, err := DecodeConfig(cleaned)
	require.NoError(t, err)
	assert.Equal(t, 48, width)
	assert.Equal(t, 32, height)
	assert.Equal(t, "JPEG", format)
}

// withEXIFMake splices a minimal APP1 EXIF segment carrying a single Make
// tag into a JPEG, right after the SOI marker.
func withEXIFMake(t *testing.T, jpg []byte, maker string) []byte {
	t.Helper()
	require.True(t, bytes.HasPrefix(jpg, []byte{0xff, 0xd8}))

	value := append([]byte(maker), 0)
	tiff := []byte{
		'I', 'I', 0x2a, 0x00, // little-endian TIFF header
		0x08, 0x00, 0x00, 0x00, // IFD0 at offset 8
		0x01, 0x00, // one entry
		0x0f, 0x01, // tag 0x010F (Make)
		0x02, 0x00, // ASCII
	}
	tiff = append(tiff, byte(len(value)), 0x00, 0x00, 0x00)
	tiff = append(tiff, 0x1a, 0x00, 0x00, 0x00) // value at offset 26
	tiff = append(tiff, 0x00, 0x00, 0x00, 0x00) // no next IFD
	tiff = append(tiff, value...)

	payload := append([]byte("Exif\x00\x00"), tiff...)
	segment := []byte{0xff, 0xe1, byte((len(payload) + 2) >> 8), byte(len(payload) + 2)}
	segment = append(segment, payload...)

	out := make([]byte, 0, len(jpg)+len(segment))
	out = append(out, jpg[:2]...)
	out = append(out, segment...)
	out = append(out, jpg[2:]...)
	return out
}

func TestStripMetadataLeavesNoResidualTags(t *testing.T) {
	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, splitImage(40, 30), &jpeg.Options{Quality: 90}))
	tagged := withEXIFMake(t, jpg.Bytes(), "Canon")

	extractor := exif.NewExtractor(zap.NewNop())
	before := extractor.Extract(tagged)
	require.Contains(t, before.Tags, "Make")
	require.NotNil(t, before.Camera)

	cleaned, err := StripMetadata(tagged, 95)
	require.NoError(t, err)

	after := extractor.Extract(cleaned)
	assert.Empty(t, after.Tags)
	assert.Nil(t, after.Camera)
	assert.Nil(t, after.GPS)

	width, height, _, err := DecodeConfig(cleaned)
	require.NoError(t, err)
	assert.Equal(t, 40, width)
	assert.Equal(t, 30, height)
}

func TestStripMetadataRejectsGarbage(t *testing.T) {
	_, err := StripMetadata([]byte("junk"), 95)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestEncodeDataURL(t *testing.T) {
	url := EncodeDataURL([]byte{0xff, 0xd8}, "image/jpeg")
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))
}
