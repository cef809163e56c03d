package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type Config struct {
	HTTPAddr string
	// GRPCAddr enables the gRPC health service when set.
	GRPCAddr        string
	ShutdownTimeout time.Duration
}

// Server runs the HTTP engine and, optionally, a gRPC health endpoint.
type Server struct {
	cfg     Config
	httpSrv *http.Server
	httpLis net.Listener
	grpcSrv *grpc.Server
	grpcLis net.Listener
	health  *health.Server
	logger  *slog.Logger
}

func New(cfg Config, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		cfg: cfg,
		httpSrv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Listen binds the configured addresses.
func (s *Server) Listen() error {
	lis, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen http %s: %w", s.cfg.HTTPAddr, err)
	}
	s.httpLis = lis

	if s.cfg.GRPCAddr != "" {
		glis, err := net.Listen("tcp", s.cfg.GRPCAddr)
		if err != nil {
			_ = lis.Close()
			return fmt.Errorf("listen grpc %s: %w", s.cfg.GRPCAddr, err)
		}
		s.grpcLis = glis
		s.grpcSrv = grpc.NewServer()
		s.health = health.NewServer()
		healthpb.RegisterHealthServer(s.grpcSrv, s.health)
		// Reflection for grpcurl
		reflection.Register(s.grpcSrv)
	}
	return nil
}

func (s *Server) HTTPAddr() string { return addrOf(s.httpLis) }

func (s *Server) GRPCAddr() string { return addrOf(s.grpcLis) }

func addrOf(l net.Listener) string {
	if l == nil {
		return ""
	}
	return l.Addr().String()
}

// Serve blocks until ctx is cancelled or a listener fails, then shuts both
// servers down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if s.httpLis == nil {
		return errors.New("server: Listen must be called before Serve")
	}
	errCh := make(chan error, 2)

	go func() {
		s.logger.Info("http serving", "addr", s.HTTPAddr())
		if err := s.httpSrv.Serve(s.httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	if s.grpcSrv != nil {
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		go func() {
			s.logger.Info("gRPC health serving", "addr", s.GRPCAddr())
			if err := s.grpcSrv.Serve(s.grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		s.logger.Error("server failed", "err", serveErr)
	}

	s.logger.Info("shutting down...")
	if s.health != nil {
		s.health.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown incomplete", "err", err)
	}
	if s.grpcSrv != nil {
		s.grpcSrv.GracefulStop()
	}
	s.logger.Info("shutdown complete")
	return serveErr
}

// Run listens and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}
