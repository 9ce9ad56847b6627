//go:build unix

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/athulya-anil/axon-render/pkg/worker"
)

// watchToggle flips availability on SIGUSR1.
func watchToggle(ctx context.Context, agent *worker.Agent, logger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGUSR1)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			available := agent.ToggleAvailable()
			logger.Info("availability toggled", slog.String("worker_id", agent.ID), slog.Bool("available", available))
		}
	}
}
