package ocr

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/koreanssam/docmark/constants"
	"github.com/koreanssam/docmark/internal/common"
)

// Detection is the classification of an uploaded file.
type Detection struct {
	Kind     constants.SourceKind
	MimeType string
}

// DetectKind checks the extension against the allow-list and confirms it with the
// sniffed content type, so a renamed file cannot pass as the other kind.
func DetectKind(fileName string, data []byte) (Detection, error) {
	ext := constants.NormalizeExt(filepath.Ext(fileName))
	byExt := constants.MapExtToFormat(ext)
	if byExt == "" {
		return Detection{}, common.NewAppError(common.CodeUnsupportedType,
			fmt.Sprintf("unsupported file extension %q; upload a PDF or an image (pdf, png, jpg, jpeg, bmp, webp)", ext),
			common.ErrUnsupportedType)
	}
	if len(data) == 0 {
		return Detection{}, common.NewAppError(common.CodeInvalidInput, "uploaded file is empty", common.ErrInvalidInput)
	}

	mt := mimetype.Detect(data)
	sniffed := mt.String()
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}

	var byContent constants.SourceKind
	switch {
	case mt.Is(constants.MimePDF):
		byContent = constants.PDF
	case strings.HasPrefix(sniffed, "image/"):
		byContent = constants.IMAGE
	}
	if byContent != byExt {
		return Detection{}, common.NewAppError(common.CodeUnsupportedType,
			fmt.Sprintf("file content (%s) does not match extension %q", sniffed, ext),
			common.ErrUnsupportedType)
	}
	return Detection{Kind: byContent, MimeType: sniffed}, nil
}
