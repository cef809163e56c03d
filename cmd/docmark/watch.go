package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/koreanssam/docmark/internal/async"
	"github.com/koreanssam/docmark/internal/ingest"
)

type watchOptions struct {
	extractOptions
	initialScan bool
	debounce    time.Duration
}

func newWatchCmd(a *app) *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch DIR...",
		Short: "Transcribe every PDF or image dropped into the given directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watch(cmd.Context(), args, opts)
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.initialScan, "initial-scan", false, "also transcribe files already present")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", time.Second, "wait this long after the last write before transcribing")
	return cmd
}

func (a *app) watch(parent context.Context, roots []string, opts *watchOptions) error {
	cfg, logger := a.cfg, a.logger
	if err := cfg.Validate(); err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs, closeLog := a.openJobLog(ctx, opts.noLog)
	defer closeLog()

	proc, release, err := newProcessor(ctx, cfg, jobs, logger)
	if err != nil {
		return err
	}
	defer release()

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       roots,
		InitialScan: opts.initialScan,
		Debounce:    opts.debounce,
		SkipHidden:  true,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	q := async.NewWorkerQueue(ctx, func(ctx context.Context, job async.Job) error {
		return extractFile(ctx, proc, job.Path, &opts.extractOptions, logger)
	}, logger, async.WithWorkers(opts.workers))
	defer q.Shutdown(context.WithoutCancel(ctx))

	logger.Info("watch.started", "roots", roots)
	// modification time of the last enqueued version of each file
	seen := map[string]time.Time{}
	for {
		select {
		case path, ok := <-events:
			if !ok {
				return nil
			}
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if last, dup := seen[path]; dup && last.Equal(info.ModTime()) {
				continue
			}
			seen[path] = info.ModTime()
			if err := q.Enqueue(ctx, async.Job{Path: path}); err != nil {
				return nil
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch.error", "error", err)
		case <-ctx.Done():
			logger.Info("watch.stopping")
			return nil
		}
	}
}
