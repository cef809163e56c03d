package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/koreanssam/docmark/constants"
	"github.com/koreanssam/docmark/internal/common"
	"github.com/koreanssam/docmark/internal/entity"
)

const jobTable = "extract_job"

var jobColumns = []string{
	"id", "file_name", "source_kind", "requested_pages", "status", "page_count",
	"input_tokens", "output_tokens", "completion_ms", "model_name", "error_message",
	"started_at", "finished_at",
}

// JobSummary is what a finished extraction reports back to the log.
type JobSummary struct {
	Status       constants.JobStatus
	PageCount    int
	InputTokens  int
	OutputTokens int
	CompletionMs float64
	ModelName    string
}

type ExtractJobRepository interface {
	Start(ctx context.Context, fileName string, kind constants.SourceKind, requestedPages string) (*entity.ExtractJob, error)
	FinishSuccess(ctx context.Context, jobID uuid.UUID, summary JobSummary) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	List(ctx context.Context, limit int) ([]*entity.ExtractJob, error)
	Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error)
}

type extractJobRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{db: db, log: log, now: time.Now}
}

func (r *extractJobRepo) Start(ctx context.Context, fileName string, kind constants.SourceKind, requestedPages string) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:             uuid.New(),
		FileName:       fileName,
		SourceKind:     string(kind),
		RequestedPages: requestedPages,
		Status:         string(constants.JobStatusRunning),
		StartedAt:      r.now().UTC().Truncate(time.Millisecond),
	}
	query, args := r.db.builder().Insert(jobTable).
		Columns("id", "file_name", "source_kind", "requested_pages", "status", "started_at").
		Values(job.ID.String(), job.FileName, job.SourceKind, job.RequestedPages, job.Status, job.StartedAt.UnixMilli()).
		Query()
	if _, err := r.db.drv.DB().ExecContext(ctx, query, args...); err != nil {
		r.log.Error("extract_job start failed", "file_name", fileName, "err", err)
		return nil, fmt.Errorf("%w: insert extract_job: %w", common.ErrDatabase, err)
	}
	r.log.Info("extract_job started", "job_id", job.ID, "file_name", fileName, "source_kind", kind)
	return job, nil
}

func (r *extractJobRepo) FinishSuccess(ctx context.Context, jobID uuid.UUID, s JobSummary) error {
	status := s.Status
	if status == "" {
		status = constants.JobStatusSucceeded
	}
	query, args := r.db.builder().Update(jobTable).
		Set("status", string(status)).
		Set("page_count", s.PageCount).
		Set("input_tokens", s.InputTokens).
		Set("output_tokens", s.OutputTokens).
		Set("completion_ms", s.CompletionMs).
		Set("model_name", s.ModelName).
		Set("finished_at", r.now().UTC().UnixMilli()).
		Where(entsql.EQ("id", jobID.String())).
		Query()
	if err := r.execOne(ctx, jobID, query, args); err != nil {
		r.log.Error("extract_job finish(OK) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job finished", "job_id", jobID, "status", status, "pages", s.PageCount)
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	query, args := r.db.builder().Update(jobTable).
		Set("status", string(constants.JobStatusFailed)).
		Set("error_message", message).
		Set("finished_at", r.now().UTC().UnixMilli()).
		Where(entsql.EQ("id", jobID.String())).
		Query()
	if err := r.execOne(ctx, jobID, query, args); err != nil {
		r.log.Error("extract_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

// List returns the most recent jobs first; limit <= 0 means no limit.
func (r *extractJobRepo) List(ctx context.Context, limit int) ([]*entity.ExtractJob, error) {
	b := r.db.builder()
	sel := b.Select(jobColumns...).From(b.Table(jobTable)).OrderBy(entsql.Desc("started_at"), entsql.Desc("id"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()
	rows, err := r.db.drv.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list extract_job: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var jobs []*entity.ExtractJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list extract_job: %w", common.ErrDatabase, err)
	}
	return jobs, nil
}

func (r *extractJobRepo) Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error) {
	b := r.db.builder()
	query, args := b.Select(jobColumns...).From(b.Table(jobTable)).
		Where(entsql.EQ("id", jobID.String())).
		Query()
	row := r.db.drv.DB().QueryRowContext(ctx, query, args...)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("extract_job %s: %w", jobID, common.ErrNotFound)
	}
	return job, err
}

func (r *extractJobRepo) execOne(ctx context.Context, jobID uuid.UUID, query string, args []any) error {
	res, err := r.db.drv.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: update extract_job: %w", common.ErrDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("extract_job %s: %w", jobID, common.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*entity.ExtractJob, error) {
	var (
		id         string
		job        entity.ExtractJob
		modelName  sql.NullString
		errMessage sql.NullString
		startedAt  int64
		finishedAt sql.NullInt64
	)
	err := s.Scan(&id, &job.FileName, &job.SourceKind, &job.RequestedPages, &job.Status, &job.PageCount,
		&job.InputTokens, &job.OutputTokens, &job.CompletionMs, &modelName, &errMessage, &startedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scan extract_job: %w", common.ErrDatabase, err)
	}
	job.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: extract_job id %q: %w", common.ErrDatabase, id, err)
	}
	if modelName.Valid {
		job.ModelName = &modelName.String
	}
	if errMessage.Valid {
		job.ErrorMessage = &errMessage.String
	}
	job.StartedAt = time.UnixMilli(startedAt).UTC()
	if finishedAt.Valid {
		t := time.UnixMilli(finishedAt.Int64).UTC()
		job.FinishedAt = &t
	}
	return &job, nil
}
