package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/koreanssam/docmark/constants"
	"github.com/koreanssam/docmark/internal/assemble"
	"github.com/koreanssam/docmark/internal/common"
	"github.com/koreanssam/docmark/internal/entity"
	"github.com/koreanssam/docmark/internal/ocr"
)

// Upload is one file as received from the form, the API or the CLI.
type Upload struct {
	FileName string
	Data     []byte
	// AllPages forces every page regardless of PageSelection.
	AllPages      bool
	PageSelection string
}

// Result is everything the presentation layer shows for one extraction.
type Result struct {
	JobID    uuid.UUID                `json:"job_id"`
	Kind     constants.SourceKind     `json:"kind"`
	Outcome  entity.ExtractionOutcome `json:"outcome"`
	Text     string                   `json:"text"`
	Output   entity.OutputName        `json:"output"`
	Pages    []int                    `json:"requested_pages,omitempty"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// Processor classifies an upload, runs the extract stage and assembles the text.
type Processor struct {
	Logger *slog.Logger
	Stage  *ExtractStage
	Prompt string
}

func NewProcessor(logger *slog.Logger, stage *ExtractStage, prompt string) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Stage: stage, Prompt: prompt}
}

// Process runs one upload end to end. Errors are *common.AppError.
func (p *Processor) Process(ctx context.Context, up Upload) (*Result, error) {
	log := common.LoggerFromContext(ctx, p.Logger)

	det, err := ocr.DetectKind(up.FileName, up.Data)
	if err != nil {
		log.Warn("processor.detect.rejected", "file_name", up.FileName, "err", err)
		return nil, err
	}

	req := entity.ExtractionRequest{
		SourceKind:   det.Kind,
		FileName:     up.FileName,
		SystemPrompt: p.Prompt,
		Data:         up.Data,
	}
	var warnings []string
	if det.Kind == constants.PDF && !up.AllPages {
		sel := assemble.NormalizePageSelection(up.PageSelection)
		if sel.Warning != "" {
			warnings = append(warnings, sel.Warning)
		}
		req.RequestedPages = sel.Pages
		req.RawPageSelection = up.PageSelection
	}
	log.Info("processor.start",
		"file_name", up.FileName,
		"kind", det.Kind,
		"mime", det.MimeType,
		"bytes", len(up.Data),
		"pages", assemble.FormatPages(req.RequestedPages),
	)

	jobID, outcome, err := p.Stage.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	text := assemble.Assemble(outcome, det.Kind)
	res := &Result{
		JobID:    jobID,
		Kind:     det.Kind,
		Outcome:  outcome,
		Text:     text.FullText,
		Output:   assemble.DeriveOutputName(up.FileName, det.Kind),
		Pages:    req.RequestedPages,
		Warnings: append(warnings, outcome.Warnings...),
	}
	log.Info("processor.ok", "job_id", jobID, "output", res.Output.FileName, "chars", len(res.Text))
	return res, nil
}
