package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/koreanssam/docmark/internal/entity"
)

// SheetName is the single sheet of the job workbook.
const SheetName = "Jobs"

// JobLister is the slice of the job repository the export needs.
type JobLister interface {
	List(ctx context.Context, limit int) ([]*entity.ExtractJob, error)
}

// Service is a tiny façade over the job log that produces XLSX bytes for exports.
type Service struct {
	jobs   JobLister
	logger *slog.Logger
}

func NewService(jobs JobLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

var headers = []string{
	"Started At",
	"File Name",
	"Kind",
	"Requested Pages",
	"Status",
	"Pages",
	"Input Tokens",
	"Output Tokens",
	"Completion (ms)",
	"Model",
	"Error",
}

// ExportJobsXLSX returns a workbook with one row per job, newest first.
// limit <= 0 exports the whole log.
func (s *Service) ExportJobsXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	jobs, err := s.jobs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// the default sheet is renamed so the workbook has exactly one sheet
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(SheetName, "A1", last, style)
	}

	for i, j := range jobs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}

		write(1, j.StartedAt.Format(time.RFC3339))
		write(2, j.FileName)
		write(3, j.SourceKind)
		write(4, allIfEmpty(j.RequestedPages))
		write(5, j.Status)
		write(6, j.PageCount)
		write(7, j.InputTokens)
		write(8, j.OutputTokens)
		write(9, j.CompletionMs)
		write(10, deref(j.ModelName))
		write(11, truncate(deref(j.ErrorMessage), 140))
	}

	// Widen a few columns
	_ = f.SetColWidth(SheetName, "A", "A", 22) // started
	_ = f.SetColWidth(SheetName, "B", "B", 36) // file
	_ = f.SetColWidth(SheetName, "C", "E", 14)
	_ = f.SetColWidth(SheetName, "F", "I", 14) // numbers
	_ = f.SetColWidth(SheetName, "J", "J", 22) // model
	_ = f.SetColWidth(SheetName, "K", "K", 60) // error

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(jobs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func allIfEmpty(pages string) string {
	if pages == "" {
		return "all"
	}
	return pages
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
