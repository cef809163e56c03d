package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/koreanssam/docmark/constants"
	"github.com/koreanssam/docmark/internal/common"
)

// PreparedImage is an image in a format vision models accept.
type PreparedImage struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
	Warnings []string
}

// PrepareImage validates that data decodes and converts BMP to PNG. The MIME type
// is taken from the decoded format, not from the file name.
func PrepareImage(data []byte) (PreparedImage, error) {
	if len(data) > constants.MaxVisionMBDefault<<20 {
		return PreparedImage{}, common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("image exceeds %dMB", constants.MaxVisionMBDefault), common.ErrInvalidInput)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return PreparedImage{}, common.NewAppError(common.CodeInvalidInput, "image could not be decoded", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}

	if format != "bmp" {
		return PreparedImage{Data: data, MimeType: "image/" + format, Width: cfg.Width, Height: cfg.Height}, nil
	}

	img, err := bmp.Decode(bytes.NewReader(data))
	if err != nil {
		return PreparedImage{}, common.NewAppError(common.CodeInvalidInput, "bmp could not be decoded", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return PreparedImage{}, fmt.Errorf("encode png: %w", err)
	}
	return PreparedImage{
		Data:     buf.Bytes(),
		MimeType: constants.MimePNG,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Warnings: []string{"bmp converted to png"},
	}, nil
}
