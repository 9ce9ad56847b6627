package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/athulya-anil/axon-render/pkg/api"
	"github.com/athulya-anil/axon-render/pkg/config"
	"github.com/athulya-anil/axon-render/pkg/dashboard"
	"github.com/athulya-anil/axon-render/pkg/metrics"
	"github.com/athulya-anil/axon-render/pkg/rpc"
	"github.com/athulya-anil/axon-render/pkg/scheduler"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a coordinator YAML config")
	httpAddr := flag.String("http", "", "HTTP listen address (overrides http_addr)")
	grpcAddr := flag.String("grpc", "", "gRPC listen address (overrides grpc_addr)")
	flag.Parse()

	cfg, err := config.LoadCoordinator(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "coordinator:", err)
		os.Exit(1)
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *grpcAddr != "" {
		cfg.GRPCAddr = *grpcAddr
	}

	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "coordinator:", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("coordinator stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("coordinator stopped")
}

func run(ctx context.Context, cfg *config.CoordinatorConfig, logger *slog.Logger) error {
	provider, reader := metrics.NewProvider()
	defer provider.Shutdown(context.Background())

	sched := scheduler.New(
		scheduler.WithLogger(logger),
		scheduler.WithMetrics(metrics.NewWithMeter(provider.Meter("github.com/athulya-anil/axon-render"))),
		scheduler.WithLogLimit(cfg.LogMaxEntries),
		scheduler.WithRequireAvailable(cfg.RequireAvailableToPoll),
	)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(logger))
	api.NewAPI(sched, api.WithMetricsReader(reader), api.WithLogger(logger)).SetupRoutes(router)
	dashboard.NewDashboard(sched,
		dashboard.WithInterval(cfg.EventsInterval),
		dashboard.WithLogger(logger),
	).SetupRoutes(router)

	var (
		grpcSrv *grpc.Server
		grpcLis net.Listener
	)
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcLis = lis
		grpcSrv = grpc.NewServer(grpc.UnaryInterceptor(rpc.LoggingInterceptor(logger)))
		rpc.RegisterCoordinatorServer(grpcSrv, rpc.NewServer(sched))
	}

	g, ctx := errgroup.WithContext(ctx)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		// Event streams end with the coordinator.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	g.Go(func() error {
		logger.Info("http api listening", slog.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if grpcSrv != nil {
		g.Go(func() error {
			logger.Info("grpc api listening", slog.String("addr", cfg.GRPCAddr))
			if err := grpcSrv.Serve(grpcLis); err != nil {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
