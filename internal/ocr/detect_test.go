package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/koreanssam/docmark/constants"
	"github.com/koreanssam/docmark/internal/common"
)

var minimalPDF = []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer << /Root 1 0 R >>\n%%EOF\n")

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func bmpBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, testImage()))
	return buf.Bytes()
}

func TestDetectKind(t *testing.T) {
	d, err := DetectKind("report.PDF", minimalPDF)
	require.NoError(t, err)
	assert.Equal(t, constants.PDF, d.Kind)

	d, err = DetectKind("scan.png", pngBytes(t))
	require.NoError(t, err)
	assert.Equal(t, constants.IMAGE, d.Kind)
	assert.Equal(t, "image/png", d.MimeType)
}

func TestDetectKind_Rejections(t *testing.T) {
	_, err := DetectKind("notes.docx", []byte("PK\x03\x04"))
	assert.ErrorIs(t, err, common.ErrUnsupportedType)

	_, err = DetectKind("fake.pdf", pngBytes(t))
	assert.ErrorIs(t, err, common.ErrUnsupportedType)

	_, err = DetectKind("empty.png", nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestPrepareImage_PNGUnchanged(t *testing.T) {
	data := pngBytes(t)

	got, err := PrepareImage(data)

	require.NoError(t, err)
	assert.Equal(t, data, got.Data)
	assert.Equal(t, "image/png", got.MimeType)
	assert.Equal(t, 4, got.Width)
	assert.Equal(t, 3, got.Height)
	assert.Empty(t, got.Warnings)
}

func TestPrepareImage_BMPToPNG(t *testing.T) {
	got, err := PrepareImage(bmpBytes(t))

	require.NoError(t, err)
	assert.Equal(t, constants.MimePNG, got.MimeType)
	_, format, err := image.DecodeConfig(bytes.NewReader(got.Data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.NotEmpty(t, got.Warnings)
}

func TestPrepareImage_Garbage(t *testing.T) {
	_, err := PrepareImage([]byte("not an image"))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
