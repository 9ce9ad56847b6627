package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/athulya-anil/axon-render/pkg/models"
	"github.com/athulya-anil/axon-render/pkg/scheduler"
)

// HeartbeatSender reports the agent's availability on a fixed interval,
// and immediately whenever SetAvailable is called. It runs alongside the
// work loop so last_seen stays fresh during long renders.
type HeartbeatSender struct {
	agent    *Agent
	interval time.Duration
}

func newHeartbeatSender(a *Agent) *HeartbeatSender {
	return &HeartbeatSender{agent: a, interval: a.heartbeatInterval}
}

// Run sends heartbeats until ctx is cancelled.
func (h *HeartbeatSender) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.agent.logger.Debug("heartbeat sender stopped", slog.String("worker_id", h.agent.ID))
			return
		case <-ticker.C:
		case <-h.agent.wake:
		}

		if err := h.send(ctx); err != nil && ctx.Err() == nil {
			h.agent.logger.Warn("heartbeat failed",
				slog.String("worker_id", h.agent.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// send sends a single heartbeat. A coordinator that no longer knows the
// worker (it restarted) gets a fresh registration instead.
func (h *HeartbeatSender) send(ctx context.Context) error {
	a := h.agent
	ctx, cancel := context.WithTimeout(ctx, a.requestTimeout)
	defer cancel()

	available := a.Available()
	name := a.Name
	_, err := a.coordinator.UpdateWorker(ctx, models.UpdateWorkerRequest{
		ID:        a.ID,
		Available: &available,
		Name:      &name,
	})
	if errors.Is(err, scheduler.ErrUnknownWorker) {
		a.logger.Info("coordinator lost registration, registering again", slog.String("worker_id", a.ID))
		_, err = a.coordinator.RegisterWorker(ctx, a.registration())
	}
	return err
}
