package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/koreanssam/docmark/constants"
	"github.com/koreanssam/docmark/internal/assemble"
	"github.com/koreanssam/docmark/internal/common"
	"github.com/koreanssam/docmark/internal/entity"
	"github.com/koreanssam/docmark/internal/extract"
	"github.com/koreanssam/docmark/internal/repository"
)

// JobRecorder is the part of the job log the pipeline writes to.
type JobRecorder interface {
	Start(ctx context.Context, fileName string, kind constants.SourceKind, requestedPages string) (*entity.ExtractJob, error)
	FinishSuccess(ctx context.Context, jobID uuid.UUID, summary repository.JobSummary) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
}

type ExtractStage struct {
	Jobs     JobRecorder
	Provider extract.Provider
	Logger   *slog.Logger
}

func NewExtractStage(jobs JobRecorder, provider extract.Provider, logger *slog.Logger) *ExtractStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStage{Jobs: jobs, Provider: provider, Logger: logger}
}

// Run records an extract_job, calls the provider once and records the result.
// A failing job log never fails the extraction; the job ID is then synthetic.
func (s *ExtractStage) Run(ctx context.Context, req entity.ExtractionRequest) (uuid.UUID, entity.ExtractionOutcome, error) {
	log := common.LoggerFromContext(ctx, s.Logger)

	jobID := uuid.New()
	recorded := false
	if s.Jobs != nil {
		job, err := s.Jobs.Start(ctx, req.FileName, req.SourceKind, assemble.FormatPages(req.RequestedPages))
		if err != nil {
			log.Warn("pipeline.job.start_failed", "file_name", req.FileName, "err", err)
		} else {
			jobID, recorded = job.ID, true
		}
	}
	log = log.With("job_id", jobID)

	outcome, err := s.Provider.Extract(ctx, req)
	if err != nil {
		log.Error("pipeline.extract.failed", "file_name", req.FileName, "kind", req.SourceKind, "err", err)
		if recorded {
			if ferr := s.Jobs.FinishFailure(context.WithoutCancel(ctx), jobID, err.Error()); ferr != nil {
				log.Warn("pipeline.job.finish_failed", "err", ferr)
			}
		}
		return jobID, entity.ExtractionOutcome{}, common.NewAppError(common.CodeProviderFailure, "extraction failed",
			fmt.Errorf("%w: %w", common.ErrProviderFailure, err))
	}

	status := constants.JobStatusSucceeded
	if len(outcome.Pages) == 0 {
		status = constants.JobStatusEmpty
	}
	log.Info("pipeline.extract.ok",
		"pages", len(outcome.Pages),
		"input_tokens", outcome.InputTokens,
		"output_tokens", outcome.OutputTokens,
		"completion_ms", outcome.CompletionTimeMs,
	)
	if recorded {
		summary := repository.JobSummary{
			Status:       status,
			PageCount:    len(outcome.Pages),
			InputTokens:  outcome.InputTokens,
			OutputTokens: outcome.OutputTokens,
			CompletionMs: outcome.CompletionTimeMs,
			ModelName:    outcome.Model,
		}
		if err := s.Jobs.FinishSuccess(ctx, jobID, summary); err != nil {
			log.Warn("pipeline.job.finish_failed", "err", err)
		}
	}
	return jobID, outcome, nil
}
