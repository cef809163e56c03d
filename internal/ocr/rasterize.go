package ocr

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/koreanssam/docmark/constants"
)

// ErrNoPagesRendered is returned when pdftoppm produced no images.
var ErrNoPagesRendered = errors.New("no pages rendered")

// RasterConfig configures the poppler tools.
type RasterConfig struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	Pdfinfo  string // binary name or absolute path; if empty -> "pdfinfo"
	DPI      int    // default 200
}

// PageImage is one rendered page.
type PageImage struct {
	Page     int
	Data     []byte
	MimeType string
}

// Rasterizer turns PDF pages into PNG images.
type Rasterizer struct {
	cfg    RasterConfig
	runner Runner
	logger *slog.Logger
}

// NewRasterizer fills defaults. A nil runner means ExecRunner.
func NewRasterizer(cfg RasterConfig, runner Runner, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Pdfinfo == "" {
		cfg.Pdfinfo = "pdfinfo"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &Rasterizer{cfg: cfg, runner: runner, logger: logger}
}

// Binaries lists the external tools this rasterizer needs.
func (r *Rasterizer) Binaries() []string {
	return []string{r.cfg.Pdftoppm, r.cfg.Pdfinfo}
}

// PageCount reads the "Pages:" line of pdfinfo.
func (r *Rasterizer) PageCount(ctx context.Context, pdfPath string) (int, error) {
	out, errb, err := r.runner.Run(ctx, r.cfg.Pdfinfo, pdfPath)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo: %w: %s", err, truncate(string(errb), 512))
	}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
		if err != nil {
			return 0, fmt.Errorf("pdfinfo: parse page count %q: %w", line, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("pdfinfo: no page count in output")
}

// Render rasterizes the given 1-based pages, or every page when pages is empty.
// Images are returned in ascending page order.
func (r *Rasterizer) Render(ctx context.Context, pdfPath string, pages []int) ([]PageImage, error) {
	tmpDir, err := os.MkdirTemp("", "docmark-pp-*")
	if err != nil {
		return nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			r.logger.Warn("ocr.render.cleanup_failed", "dir", path, "error", err)
		}
	}(tmpDir)

	dpi := strconv.Itoa(r.cfg.DPI)
	if len(pages) == 0 {
		// pdftoppm -r 200 -png <in.pdf> <tmp/page>
		prefix := filepath.Join(tmpDir, "page")
		if _, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, "-r", dpi, "-png", pdfPath, prefix); err != nil {
			return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
		}
	} else {
		for _, p := range pages {
			n := strconv.Itoa(p)
			prefix := filepath.Join(tmpDir, "page")
			if _, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, "-r", dpi, "-png", "-f", n, "-l", n, pdfPath, prefix); err != nil {
				return nil, fmt.Errorf("pdftoppm page %d: %w: %s", p, err, truncate(string(errb), 512))
			}
		}
	}

	images, err := collectPages(tmpDir, "page")
	if err != nil {
		return nil, err
	}
	r.logger.Debug("ocr.render.done", "pdf", filepath.Base(pdfPath), "pages", len(images), "dpi", r.cfg.DPI)
	return images, nil
}

// RenderPage rasterizes a single 1-based page. Callers that transcribe page by
// page use it so only the pages in flight are held in memory.
func (r *Rasterizer) RenderPage(ctx context.Context, pdfPath string, page int) (PageImage, error) {
	images, err := r.Render(ctx, pdfPath, []int{page})
	if err != nil {
		return PageImage{}, err
	}
	for _, img := range images {
		if img.Page == page {
			return img, nil
		}
	}
	return PageImage{}, fmt.Errorf("page %d: %w", page, ErrNoPagesRendered)
}

// collectPages reads prefix-N.png files. pdftoppm zero-pads N to the width of
// the document's page count, so N is parsed rather than formatted.
func collectPages(dir, prefix string) ([]PageImage, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"-*.png"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNoPagesRendered
	}

	images := make([]PageImage, 0, len(matches))
	for _, m := range matches {
		num := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix+"-"), ".png")
		page, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		data, err := os.ReadFile(m)
		if err != nil {
			return nil, fmt.Errorf("read rendered page %d: %w", page, err)
		}
		images = append(images, PageImage{Page: page, Data: data, MimeType: constants.MimePNG})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Page < images[j].Page })
	return images, nil
}
