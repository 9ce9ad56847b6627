package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/athulya-anil/axon-render/pkg/client"
	"github.com/athulya-anil/axon-render/pkg/config"
	"github.com/athulya-anil/axon-render/pkg/console"
	"github.com/athulya-anil/axon-render/pkg/rpc"
	"github.com/athulya-anil/axon-render/pkg/worker"
)

func main() {
	configPath := flag.String("config", "", "path to a worker YAML config")
	id := flag.String("id", "", "worker id (overrides id)")
	name := flag.String("name", "", "display name (overrides name)")
	coordinatorURL := flag.String("coordinator", "", "coordinator base URL (overrides coordinator_url)")
	transport := flag.String("transport", "", "http or grpc (overrides transport)")
	unavailable := flag.Bool("unavailable", false, "start without accepting tasks")
	echo := flag.Bool("echo", false, "print renderer output locally")
	flag.Parse()

	cfg, err := config.LoadAgent(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
	if *id != "" {
		cfg.ID = *id
		if *name == "" && os.Getenv("WORKER_NAME") == "" {
			cfg.Name = *id
		}
	}
	if *name != "" {
		cfg.Name = *name
	}
	if *coordinatorURL != "" {
		cfg.CoordinatorURL = *coordinatorURL
	}
	if *transport != "" {
		cfg.Transport = *transport
	}
	if *unavailable {
		cfg.Available = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}

	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *echo); err != nil && ctx.Err() == nil {
		logger.Error("worker stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("worker stopped", slog.String("worker_id", cfg.ID))
}

func run(ctx context.Context, cfg *config.AgentConfig, logger *slog.Logger, echo bool) error {
	var coordinator worker.Coordinator
	switch cfg.Transport {
	case config.TransportGRPC:
		c, err := rpc.Dial(cfg.GRPCAddr)
		if err != nil {
			return err
		}
		defer c.Close()
		coordinator = c
		logger.Info("using grpc transport", slog.String("addr", cfg.GRPCAddr))
	default:
		coordinator = client.New(cfg.CoordinatorURL, client.WithTimeout(cfg.RequestTimeout))
		logger.Info("using http transport", slog.String("url", cfg.CoordinatorURL))
	}

	runner := &worker.ExecRunner{
		Binary:    cfg.Renderer.Binary,
		ExtraArgs: cfg.Renderer.ExtraArgs,
		Logger:    logger,
	}

	agent := worker.NewAgent(cfg.ID, coordinator, runner,
		worker.WithName(cfg.Name),
		worker.WithLogger(logger),
		worker.WithObserver(console.NewPrinter(os.Stdout, logger, echo)),
		worker.WithAvailable(cfg.Available),
		worker.WithInfo(hostInfo()),
		worker.WithHeartbeatInterval(cfg.HeartbeatInterval),
		worker.WithIdleInterval(cfg.IdleInterval),
		worker.WithUnavailableInterval(cfg.UnavailableInterval),
		worker.WithErrorBackoff(cfg.ErrorBackoff),
		worker.WithRequestTimeout(cfg.RequestTimeout),
		worker.WithFrameWindow(cfg.FrameWindow),
	)

	go watchToggle(ctx, agent, logger)

	logger.Info("worker ready",
		slog.String("worker_id", cfg.ID),
		slog.String("name", cfg.Name),
		slog.Bool("available", cfg.Available),
	)
	return agent.Run(ctx)
}

func hostInfo() map[string]string {
	hostname, _ := os.Hostname()
	return map[string]string{
		"hostname": hostname,
		"os":       runtime.GOOS,
		"arch":     runtime.GOARCH,
		"cpus":     strconv.Itoa(runtime.NumCPU()),
	}
}
