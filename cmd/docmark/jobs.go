package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/koreanssam/docmark/internal/export"
	repo "github.com/koreanssam/docmark/internal/repository"
	svc "github.com/koreanssam/docmark/internal/server"
)

func newJobsCmd(a *app) *cobra.Command {
	jobs := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the extraction job log",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Print recent jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.listJobs(cmd.Context(), limit)
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "number of jobs to show (0 = all)")

	var out string
	var exportLimit int
	exp := &cobra.Command{
		Use:   "export",
		Short: "Write the job log to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.exportJobs(cmd.Context(), out, exportLimit)
		},
	}
	exp.Flags().StringVarP(&out, "out", "o", "extract_jobs.xlsx", "output workbook path")
	exp.Flags().IntVarP(&exportLimit, "limit", "n", 0, "number of jobs to export (0 = all)")

	jobs.AddCommand(list, exp)
	return jobs
}

func (a *app) openJobs(ctx context.Context) (repo.ExtractJobRepository, func(), error) {
	db, err := svc.ConnectDB(ctx, a.cfg.Database, a.logger)
	if err != nil {
		return nil, nil, err
	}
	return repo.NewExtractJobRepository(db, a.logger), db.Close, nil
}

func (a *app) listJobs(ctx context.Context, limit int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	jobs, closeDB, err := a.openJobs(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	rows, err := jobs.List(ctx, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tFILE\tKIND\tPAGES\tSTATUS\tTOKENS(IN/OUT)\tMS")
	for _, j := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d/%d\t%.0f\n",
			j.StartedAt.Local().Format(time.DateTime), j.FileName, j.SourceKind, j.PageCount,
			j.Status, j.InputTokens, j.OutputTokens, j.CompletionMs)
	}
	return tw.Flush()
}

func (a *app) exportJobs(ctx context.Context, out string, limit int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	jobs, closeDB, err := a.openJobs(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	data, err := export.NewService(jobs, a.logger).ExportJobsXLSX(ctx, limit)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	a.logger.Info("jobs.export.done", "path", out, "bytes", len(data))
	return nil
}
