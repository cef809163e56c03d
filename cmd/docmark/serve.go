package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/koreanssam/docmark/internal/export"
	repo "github.com/koreanssam/docmark/internal/repository"
	svc "github.com/koreanssam/docmark/internal/server"
	"github.com/koreanssam/docmark/internal/server/handler"
	"github.com/koreanssam/docmark/internal/server/router"
	"github.com/koreanssam/docmark/internal/server/session"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web form, the JSON API and the gRPC health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	cfg := a.cfg
	logger := newJSONLogger(cfg.SlogLevel())
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	if cfg.Server.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := svc.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	jobsRepo := repo.NewExtractJobRepository(db, logger)

	proc, release, err := newProcessor(ctx, cfg, jobsRepo, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return err
	}
	defer release()

	sessions, err := session.NewStore(cfg.Server.SessionCapacity, logger)
	if err != nil {
		return err
	}

	web := handler.NewWebHandler(proc, sessions, cfg.Server.MaxUploadMB, logger)
	api := handler.NewAPIHandler(proc, jobsRepo, export.NewService(jobsRepo, logger), logger)
	engine := router.New(router.Options{
		APIKey:         cfg.Server.APIKey,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		Logger:         logger,
	}, web, api)

	logger.Info("docmark starting",
		"http_addr", cfg.Server.HTTPAddr,
		"grpc_addr", cfg.Server.GRPCAddr,
		"provider", cfg.LLM.Provider,
		"model", cfg.ModelName(),
		"db", db.Dialect(),
	)
	server := svc.New(svc.Config{
		HTTPAddr:        cfg.Server.HTTPAddr,
		GRPCAddr:        cfg.Server.GRPCAddr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, engine, logger)
	return server.Run(ctx)
}
