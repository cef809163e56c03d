package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/koreanssam/docmark/constants"
	"github.com/koreanssam/docmark/internal/assemble"
	"github.com/koreanssam/docmark/internal/async"
	"github.com/koreanssam/docmark/internal/ingest"
	"github.com/koreanssam/docmark/internal/pipeline"
	repo "github.com/koreanssam/docmark/internal/repository"
	svc "github.com/koreanssam/docmark/internal/server"
)

type extractOptions struct {
	pages   string
	outDir  string
	stdout  bool
	noLog   bool
	workers int
}

func (o *extractOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.pages, "pages", "p", "", "PDF pages to transcribe, e.g. 1,3,5 (default all)")
	cmd.Flags().StringVarP(&o.outDir, "out", "o", "", "output directory (default: next to each input file)")
	cmd.Flags().BoolVar(&o.noLog, "no-log", false, "do not record runs in the job log")
	cmd.Flags().IntVarP(&o.workers, "workers", "w", 2, "files transcribed in parallel")
}

func newExtractCmd(a *app) *cobra.Command {
	opts := &extractOptions{}
	cmd := &cobra.Command{
		Use:   "extract FILE|DIR...",
		Short: "Transcribe PDFs and images and write the Markdown/text next to them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.extract(cmd.Context(), args, opts)
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "print the text instead of writing a file (single file only)")
	return cmd
}

// openJobLog returns the job log, or nil when it is disabled or unavailable.
func (a *app) openJobLog(ctx context.Context, disabled bool) (pipeline.JobRecorder, func()) {
	if disabled {
		return nil, func() {}
	}
	db, err := svc.ConnectDB(ctx, a.cfg.Database, a.logger)
	if err != nil {
		a.logger.Warn("job log unavailable; continuing without it", "error", err)
		return nil, func() {}
	}
	return repo.NewExtractJobRepository(db, a.logger), db.Close
}

func (a *app) extract(ctx context.Context, inputs []string, opts *extractOptions) error {
	cfg, logger := a.cfg, a.logger
	if err := cfg.Validate(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	files, stats, err := ingest.Collect(inputs, true)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no PDF or image files found in %v", inputs)
	}
	if opts.stdout && len(files) > 1 {
		return errors.New("--stdout needs exactly one input file")
	}
	if !opts.stdout {
		if err := checkOutputCollisions(files, opts.outDir); err != nil {
			return err
		}
	}
	logger.Info("extract.collected", "files", len(files), "scanned", stats.Scanned, "skipped", stats.Skipped)

	jobs, closeLog := a.openJobLog(ctx, opts.noLog)
	defer closeLog()

	proc, release, err := newProcessor(ctx, cfg, jobs, logger)
	if err != nil {
		return err
	}
	defer release()

	if len(files) == 1 {
		return extractFile(ctx, proc, files[0], opts, logger)
	}

	var (
		mu     sync.Mutex
		failed []string
	)
	q := async.NewWorkerQueue(ctx, func(ctx context.Context, job async.Job) error {
		return extractFile(ctx, proc, job.Path, opts, logger)
	}, logger,
		async.WithWorkers(opts.workers),
		async.WithOnDone(func(r async.Result) {
			if r.Err != nil {
				mu.Lock()
				failed = append(failed, r.Job.Path)
				mu.Unlock()
			}
		}),
	)
	for _, f := range files {
		if err := q.Enqueue(ctx, async.Job{Path: f}); err != nil {
			break
		}
	}
	q.Shutdown(context.WithoutCancel(ctx))

	logger.Info("extract.batch.done", "files", len(files), "failed", len(failed))
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed: %v", len(failed), len(files), failed)
	}
	return ctx.Err()
}

// outputPath is where extractFile writes the text for path.
func outputPath(path, outDir string) string {
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	kind := constants.MapExtToFormat(filepath.Ext(path))
	return filepath.Join(dir, assemble.DeriveOutputName(filepath.Base(path), kind).FileName)
}

// checkOutputCollisions fails when two inputs would be written to the same file,
// e.g. a/report.pdf and b/report.pdf with a shared --out directory.
func checkOutputCollisions(files []string, outDir string) error {
	owner := make(map[string]string, len(files))
	var clashes []string
	for _, f := range files {
		out := outputPath(f, outDir)
		key := out
		if abs, err := filepath.Abs(out); err == nil {
			key = abs
		}
		if prev, ok := owner[key]; ok {
			clashes = append(clashes, fmt.Sprintf("%s and %s both write %s", prev, f, out))
			continue
		}
		owner[key] = f
	}
	if len(clashes) > 0 {
		return fmt.Errorf("output name collision: %s", strings.Join(clashes, "; "))
	}
	return nil
}

// extractFile runs one file through the pipeline and writes the derived output.
func extractFile(ctx context.Context, proc *pipeline.Processor, path string, opts *extractOptions, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	res, err := proc.Process(ctx, pipeline.Upload{
		FileName:      filepath.Base(path),
		Data:          data,
		AllPages:      opts.pages == "",
		PageSelection: opts.pages,
	})
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		logger.Warn("extract.warning", "file", path, "message", w)
	}

	if opts.stdout {
		_, err := fmt.Fprintln(os.Stdout, res.Text)
		return err
	}

	out := outputPath(path, opts.outDir)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(out, []byte(res.Text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info("extract.done",
		"file", path,
		"output", out,
		"pages", len(res.Outcome.Pages),
		"completion_ms", res.Outcome.CompletionTimeMs,
		"input_tokens", res.Outcome.InputTokens,
		"output_tokens", res.Outcome.OutputTokens,
	)
	return nil
}
