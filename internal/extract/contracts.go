package extract

import (
	"context"

	"github.com/koreanssam/docmark/internal/entity"
	"github.com/koreanssam/docmark/internal/ocr"
)

// Provider is the Document Extraction Provider: it turns one request into a
// complete outcome or an error, never a partial outcome.
type Provider interface {
	Extract(ctx context.Context, req entity.ExtractionRequest) (entity.ExtractionOutcome, error)
}

// PageRenderer rasterizes PDF pages one at a time. *ocr.Rasterizer implements it.
type PageRenderer interface {
	PageCount(ctx context.Context, pdfPath string) (int, error)
	RenderPage(ctx context.Context, pdfPath string, page int) (ocr.PageImage, error)
}
