// Package assemble reconciles per-page extraction results into one document
// and derives the download name for it.
package assemble

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/koreanssam/docmark/constants"
	"github.com/koreanssam/docmark/internal/entity"
)

const (
	// PageHeadingPrefix starts every page block of a multi-page document.
	PageHeadingPrefix = "## 페이지 "

	NoTextPDF   = "추출된 텍스트가 없습니다 (PDF)."
	NoTextImage = "추출된 텍스트가 없습니다 (이미지)."

	blockSeparator = "\n\n"
	outputSuffix   = "_extracted"
)

// Assemble joins the outcome's pages into a single text. Pages are used in the
// order the provider returned them.
func Assemble(outcome entity.ExtractionOutcome, kind constants.SourceKind) entity.AssembledText {
	switch len(outcome.Pages) {
	case 0:
		return entity.AssembledText{FullText: fallbackText(kind)}
	case 1:
		return entity.AssembledText{FullText: outcome.Pages[0].Content}
	}

	blocks := make([]string, 0, len(outcome.Pages))
	for _, p := range outcome.Pages {
		blocks = append(blocks, fmt.Sprintf("%s%d\n\n%s", PageHeadingPrefix, p.PageNumber, p.Content))
	}
	return entity.AssembledText{FullText: strings.Join(blocks, blockSeparator)}
}

func fallbackText(kind constants.SourceKind) string {
	if kind == constants.IMAGE {
		return NoTextImage
	}
	return NoTextPDF
}

// DeriveOutputName maps an uploaded file name to the download name and MIME type.
func DeriveOutputName(originalFileName string, kind constants.SourceKind) entity.OutputName {
	stem := Stem(originalFileName)
	if kind == constants.IMAGE {
		return entity.OutputName{FileName: stem + outputSuffix + ".txt", MimeType: constants.MimePlainText}
	}
	return entity.OutputName{FileName: stem + outputSuffix + ".md", MimeType: constants.MimeMarkdown}
}

// Stem returns the base name without its last extension. Dot-files keep their name.
func Stem(name string) string {
	if name == "" {
		return ""
	}
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	ext := filepath.Ext(base)
	if ext == base {
		return base
	}
	return strings.TrimSuffix(base, ext)
}
