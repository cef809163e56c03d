package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/koreanssam/docmark/constants"
	"github.com/koreanssam/docmark/internal/assemble"
	"github.com/koreanssam/docmark/internal/entity"
	"github.com/koreanssam/docmark/internal/llm"
	"github.com/koreanssam/docmark/internal/ocr"
)

// ErrNoPagesInRange is returned when every requested page is past the end of the document.
var ErrNoPagesInRange = errors.New("none of the requested pages exist in the document")

// Config tunes the vision provider.
type Config struct {
	PageConcurrency int // parallel page transcriptions; default 4
}

// VisionProvider rasterizes PDFs page by page and asks a vision model to transcribe
// each page; images are transcribed directly.
type VisionProvider struct {
	renderer    PageRenderer
	transcriber llm.Transcriber
	cfg         Config
	logger      *slog.Logger
}

func NewVisionProvider(renderer PageRenderer, transcriber llm.Transcriber, cfg Config, logger *slog.Logger) *VisionProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageConcurrency <= 0 {
		cfg.PageConcurrency = 4
	}
	return &VisionProvider{renderer: renderer, transcriber: transcriber, cfg: cfg, logger: logger}
}

// Extract dispatches on the request's source kind.
func (p *VisionProvider) Extract(ctx context.Context, req entity.ExtractionRequest) (entity.ExtractionOutcome, error) {
	start := time.Now()
	var (
		out entity.ExtractionOutcome
		err error
	)
	switch req.SourceKind {
	case constants.PDF:
		out, err = p.extractPDF(ctx, req)
	case constants.IMAGE:
		out, err = p.extractImage(ctx, req)
	default:
		return entity.ExtractionOutcome{}, fmt.Errorf("unsupported source kind: %q", req.SourceKind)
	}
	if err != nil {
		return entity.ExtractionOutcome{}, err
	}
	out.CompletionTimeMs = float64(time.Since(start).Microseconds()) / 1000
	out.SourceFileName = req.FileName
	out.Model = p.transcriber.ModelName()
	return out, nil
}

func (p *VisionProvider) extractPDF(ctx context.Context, req entity.ExtractionRequest) (entity.ExtractionOutcome, error) {
	path, cleanup, err := saveTemp(req.Data, "docmark-*.pdf", p.logger)
	if err != nil {
		return entity.ExtractionOutcome{}, fmt.Errorf("persist upload (%s): %w", req.FileName, err)
	}
	defer cleanup()

	total, err := p.renderer.PageCount(ctx, path)
	if err != nil {
		return entity.ExtractionOutcome{}, err
	}

	var warnings []string
	pages := req.RequestedPages
	if len(pages) > 0 {
		kept, dropped := splitByRange(pages, total)
		if len(dropped) > 0 {
			warnings = append(warnings, fmt.Sprintf("pages beyond the end of the document were ignored: %s (document has %d pages)",
				assemble.FormatPages(dropped), total))
		}
		if len(kept) == 0 {
			return entity.ExtractionOutcome{}, fmt.Errorf("%w: requested %s, document has %d pages",
				ErrNoPagesInRange, assemble.FormatPages(pages), total)
		}
		slices.Sort(kept)
		pages = kept
	}

	if len(pages) == 0 {
		pages = make([]int, total)
		for i := range pages {
			pages[i] = i + 1
		}
	}

	p.logger.Info("extract.pdf.render", "file", req.FileName, "total_pages", total, "selected", assemble.FormatPages(pages))

	results := make([]entity.PageResult, len(pages))
	usage := make([]llm.VisionResponse, len(pages))

	// Each worker renders its own page, so at most PageConcurrency images are in memory.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.PageConcurrency)
	for i, page := range pages {
		g.Go(func() error {
			img, err := p.renderer.RenderPage(gctx, path, page)
			if err != nil {
				return fmt.Errorf("render page %d: %w", page, err)
			}
			resp, err := p.transcriber.Transcribe(gctx, llm.VisionRequest{
				Prompt:     req.SystemPrompt,
				Image:      img.Data,
				MimeType:   img.MimeType,
				PageNumber: page,
				FileName:   req.FileName,
			})
			if err != nil {
				return fmt.Errorf("page %d: %w", page, err)
			}
			results[i] = entity.NewPageResult(page, llm.StripMarkdownFence(resp.Text))
			usage[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return entity.ExtractionOutcome{}, err
	}

	out := entity.ExtractionOutcome{Pages: results, Warnings: warnings}
	for _, u := range usage {
		out.InputTokens += u.InputTokens
		out.OutputTokens += u.OutputTokens
	}
	return out, nil
}

func (p *VisionProvider) extractImage(ctx context.Context, req entity.ExtractionRequest) (entity.ExtractionOutcome, error) {
	img, err := ocr.PrepareImage(req.Data)
	if err != nil {
		return entity.ExtractionOutcome{}, err
	}
	p.logger.Info("extract.image.transcribe", "file", req.FileName, "mime", img.MimeType, "width", img.Width, "height", img.Height)

	resp, err := p.transcriber.Transcribe(ctx, llm.VisionRequest{
		Prompt:   req.SystemPrompt,
		Image:    img.Data,
		MimeType: img.MimeType,
		FileName: req.FileName,
	})
	if err != nil {
		return entity.ExtractionOutcome{}, err
	}

	out := entity.ExtractionOutcome{
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		Warnings:     img.Warnings,
	}
	if text := llm.StripMarkdownFence(resp.Text); text != "" {
		out.Pages = []entity.PageResult{entity.NewPageResult(1, text)}
	}
	return out, nil
}

// splitByRange separates pages inside 1..total from the rest, preserving order.
func splitByRange(pages []int, total int) (kept, dropped []int) {
	for _, pg := range pages {
		if pg >= 1 && pg <= total {
			kept = append(kept, pg)
		} else {
			dropped = append(dropped, pg)
		}
	}
	return kept, dropped
}

// saveTemp writes data to a temporary file and returns a cleanup func that
// removes it. Removal failures are logged, not returned.
func saveTemp(data []byte, pattern string, logger *slog.Logger) (string, func(), error) {
	tmpFile, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		if err := os.Remove(tmpFile.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("extract.temp.cleanup_failed", "path", tmpFile.Name(), "error", err)
		}
	}

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}
	return tmpFile.Name(), cleanup, nil
}
